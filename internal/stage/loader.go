package stage

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a catalog definition.
//
//	stages:
//	  - key: intake
//	    label: Intake
//	    role: generator
//	    gate: true
//	  - key: review_sources
//	    role: reviewer
type File struct {
	Stages []Stage `yaml:"stages"`
}

// Parse decodes a YAML catalog definition and validates it.
// Unknown fields are rejected so typos in flags surface early.
func Parse(data []byte) (*Catalog, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Stages)
}

// LoadFile reads and parses a YAML catalog definition.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load returns the catalog at path, or the default catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Marshal renders the catalog as a YAML definition accepted by Parse.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(File{Stages: c.Stages()})
}
