package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// ImportSchema is the top-level JSON structure for estimate import.
type ImportSchema struct {
	Estimate EstimateImport `json:"estimate"`
	Items    []ItemImport   `json:"items"`
}

// EstimateImport defines the estimate-level fields in the import file.
type EstimateImport struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ItemImport defines one line item. Hours and cost may be omitted when the
// item names a template, in which case the template's defaults apply.
type ItemImport struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Hours       *float64 `json:"hours,omitempty"`
	Cost        *float64 `json:"cost,omitempty"`
	Template    string   `json:"template,omitempty"`
}

// LoadImportSchema reads and parses an estimate import JSON file.
func LoadImportSchema(path string) (*ImportSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseImportSchema(data)
}

// ParseImportSchema parses import JSON. Unknown fields are rejected so a
// misspelled "hours" does not silently become a template default.
func ParseImportSchema(data []byte) (*ImportSchema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var schema ImportSchema
	if err := dec.Decode(&schema); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	return &schema, nil
}
