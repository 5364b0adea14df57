package story

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a story file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension. Unknown extensions are read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads, parses and validates a story file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}

	def, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, err
	}

	if err := Validate(def); err != nil {
		return nil, err
	}
	return def, nil
}

// Parse decodes a story definition without validating it.
func Parse(data []byte, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse story YAML: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse story JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported story format: %q", format)
	}
	return &def, nil
}
