// Package monitor validates JSON documents against a JSON schema contract.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ContractMonitor validates JSON documents against a compiled JSON schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewContractMonitorFromString creates a ContractMonitor from an inline schema document.
func NewContractMonitorFromString(schema string) (*ContractMonitor, error) {
	return newContractMonitor(gojsonschema.NewStringLoader(schema), "<inline>")
}

func newContractMonitor(loader gojsonschema.JSONLoader, name string) (*ContractMonitor, error) {
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("error loading or compiling schema %s: %w", name, err)
	}
	return &ContractMonitor{schema: schema}, nil
}

// Validate validates document against the schema.
// It returns true if valid, or false and a list of validation errors if invalid.
// A document that is not JSON at all yields an error.
func (cm *ContractMonitor) Validate(document []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return false, errors, nil
}

// FormatErrors formats a slice of validation error strings into a single string.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}
