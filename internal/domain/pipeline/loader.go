package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a Plan from a YAML file and validates it.
func LoadFromFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read plan file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML plan.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validate plan %q: %w", p.Name, err)
	}
	return &p, nil
}

// Marshal encodes a plan as YAML.
func Marshal(p *Plan) ([]byte, error) {
	return yaml.Marshal(p)
}
