package config

import (
	"fmt"
	"strings"

	"tether/internal/hostname"
	"tether/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// Validate checks the whole configuration and returns ValidationErrors
// listing every problem, or nil.
func (c TetherConfig) Validate() error {
	var errs ValidationErrors

	addIf := func(err error) {
		if ve, ok := err.(ValidationError); ok {
			errs = append(errs, ve)
		}
	}

	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		errs.Add("logging.level", "must be one of: debug, info, warn, error", c.Logging.Level)
	}
	addIf(ValidateOneOf("logging.format", c.Logging.Format, []string{LogFormatText, LogFormatJSON}))

	addIf(ValidateOneOf("graph.driver", c.Graph.Driver, []string{GraphDriverMemory, GraphDriverBadger}))
	if c.Graph.Driver == GraphDriverBadger && strings.TrimSpace(c.Graph.Path) == "" {
		errs.Add("graph.path", "is required for the badger driver")
	}
	if c.Graph.RequestTimeout <= 0 {
		errs.Add("graph.requestTimeout", "must be positive", c.Graph.RequestTimeout)
	}

	addIf(ValidateOneOf("directory.driver", c.Directory.Driver, []string{DirectoryDriverYAML, DirectoryDriverPostgres}))
	switch c.Directory.Driver {
	case DirectoryDriverYAML:
		if strings.TrimSpace(c.Directory.Path) == "" {
			errs.Add("directory.path", "is required for the yaml driver")
		}
	case DirectoryDriverPostgres:
		if strings.TrimSpace(c.Directory.DSN) == "" {
			errs.Add("directory.dsn", "is required for the postgres driver")
		}
	}

	if _, err := hostname.NewGenerator(hostname.Config{
		Template:    c.Hostname.Template,
		Domain:      c.Hostname.Domain,
		Environment: c.Hostname.Environment,
	}); err != nil {
		errs.Add("hostname.template", err.Error(), c.Hostname.Template)
	}

	if c.Isolation.MaxConcurrency <= 0 {
		errs.Add("isolation.maxConcurrency", "must be positive", c.Isolation.MaxConcurrency)
	}
	if c.Cache.TTL < 0 {
		errs.Add("cache.ttl", "must not be negative", c.Cache.TTL)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
