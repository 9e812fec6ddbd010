// Package httputil provides HTTP response helper functions.
package httputil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
)

// JSON writes a raw JSON response without envelope.
// Use Success for {"data": ...} wrapped responses.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	if data == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		return
	}
	write(w, statusCode, data)
}

// write encodes v before touching the response, so an encoding failure can
// still be reported as a 500.
func write(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Text writes a plain text response.
func Text(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Success writes a JSON response with {"data": ...} envelope.
// A payload that cannot be encoded yields a 500 error envelope instead.
func Success(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, map[string]interface{}{"data": data})
}

// Error writes a JSON response with {"error": {"message": ...}} envelope.
func Error(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"message": message},
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// FieldErrorer is implemented by errors that carry one message per input field.
type FieldErrorer interface {
	error
	FieldMessages() map[string]string
}

// FieldError is one entry of validation error details.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError writes a 400 response whose details list one message per
// field, sorted by field.
func ValidationError(w http.ResponseWriter, err FieldErrorer) {
	messages := err.FieldMessages()
	details := make([]FieldError, 0, len(messages))
	for field, msg := range messages {
		details = append(details, FieldError{Field: field, Message: msg})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Field < details[j].Field })

	write(w, http.StatusBadRequest, map[string]interface{}{
		"error": map[string]interface{}{
			"message": "validation error",
			"details": details,
		},
	})
}
