package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Parser parses JSON flow documents into Flow structures.
type Parser struct {
	// Strict enables strict JSON parsing (disallow unknown fields).
	Strict bool
}

// NewParser creates a new flow parser.
func NewParser() *Parser {
	return &Parser{Strict: false}
}

// NewStrictParser creates a new parser with strict mode enabled.
func NewStrictParser() *Parser {
	return &Parser{Strict: true}
}

// Parse parses a JSON byte array into a Flow.
func (p *Parser) Parse(data []byte) (*Flow, error) {
	var f Flow
	decoder := json.NewDecoder(bytes.NewReader(data))
	if p.Strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("flow: failed to parse flow: %w", err)
	}
	return &f, nil
}

// ParseFile parses a JSON file into a Flow.
func (p *Parser) ParseFile(filename string) (*Flow, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("flow: failed to read file %s: %w", filename, err)
	}
	return p.Parse(data)
}

// ParseString parses a JSON string into a Flow.
func (p *Parser) ParseString(jsonStr string) (*Flow, error) {
	return p.Parse([]byte(jsonStr))
}

// ToJSONString serializes a Flow to a JSON string.
func ToJSONString(f *Flow) (string, error) {
	data, err := ToJSON(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteToFile writes a Flow to a JSON file.
func WriteToFile(f *Flow, filename string) error {
	data, err := ToJSON(f)
	if err != nil {
		return fmt.Errorf("flow: failed to serialize flow: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("flow: failed to write file %s: %w", filename, err)
	}
	return nil
}
