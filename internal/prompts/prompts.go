// Package prompts loads the model instructions used for OCR and report generation.
package prompts

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// OCR holds the instructions sent with every PDF chunk.
type OCR struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Report holds the instructions for one report kind.
type Report struct {
	System    string `yaml:"system"`
	Task      string `yaml:"task"`
	Structure string `yaml:"structure"`
}

// Set is the full prompt configuration.
type Set struct {
	OCR     OCR                          `yaml:"ocr"`
	Reports map[models.ReportKind]Report `yaml:"reports"`
}

// Default returns the embedded prompt set.
func Default() (*Set, error) {
	return Parse(defaultPrompts)
}

// Load reads a prompt set from path, or returns the embedded set when path is empty.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML prompt set and checks that every report kind is covered.
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}
	if set.OCR.System == "" {
		return nil, fmt.Errorf("prompts: ocr.system is empty")
	}
	for _, kind := range []models.ReportKind{models.ReportKindLegal, models.ReportKindFinancial} {
		r, ok := set.Reports[kind]
		if !ok || r.System == "" || r.Structure == "" {
			return nil, fmt.Errorf("prompts: reports.%s needs system and structure", kind)
		}
	}
	return &set, nil
}

// ForReport returns the prompts for kind.
func (s *Set) ForReport(kind models.ReportKind) (Report, error) {
	r, ok := s.Reports[kind]
	if !ok {
		return Report{}, fmt.Errorf("no prompts for report kind %q", kind)
	}
	return r, nil
}
