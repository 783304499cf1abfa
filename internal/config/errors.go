package config

import (
	"fmt"
	"strings"
)

// ConfigurationError describes a config file that could not be read or decoded.
type ConfigurationError struct {
	FilePath    string   `json:"filePath"`
	FileName    string   `json:"fileName"`
	ErrorType   string   `json:"errorType"` // io or parse
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, ce.FileName, ce.Message)
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Configuration Error in %s", ce.FileName))
	parts = append(parts, fmt.Sprintf("  File: %s", ce.FilePath))
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))
	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(filePath, fileName, errorType, message string) ConfigurationError {
	ce := ConfigurationError{
		FilePath:  filePath,
		FileName:  fileName,
		ErrorType: errorType,
		Message:   message,
	}
	if errorType == "parse" {
		ce.Suggestions = []string{
			"check the YAML indentation",
			"durations use Go syntax, e.g. 5s or 1m30s",
		}
	}
	return ce
}
