// Package seed loads incident registers from YAML documents.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/bissquit/risk-ledger/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demo []byte

// File is the YAML layout of a seed document.
type File struct {
	Version   int               `yaml:"version"`
	Incidents []domain.Incident `yaml:"incidents"`
}

// Demo returns the built-in demo register.
func Demo() ([]domain.Incident, error) {
	return parse(demo)
}

// Load reads a register from a YAML file.
func Load(path string) ([]domain.Incident, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) ([]domain.Incident, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if f.Version != 1 {
		return nil, fmt.Errorf("unsupported seed file version %d", f.Version)
	}
	if f.Incidents == nil {
		f.Incidents = make([]domain.Incident, 0)
	}
	return f.Incidents, nil
}
