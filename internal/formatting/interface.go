// Package formatting renders engine results for the command line.
//
// Every formatter writes to Options.Out. Table output uses go-pretty tables
// and lists; JSON and YAML output marshal the engine types directly so they
// can be consumed by scripts.
package formatting

import (
	"fmt"
	"io"
	"os"

	"tether/internal/api"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseOutputFormat validates a user supplied format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Out    io.Writer
	Color  bool // Enable colored output
}

// Change is one edge mutation reported by sync and isolate.
type Change struct {
	Instance string `json:"instance" yaml:"instance"`
	Action   string `json:"action" yaml:"action"`
	Target   string `json:"target" yaml:"target"`
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
}

// Formatter renders dependency reads and edge changes.
type Formatter interface {
	// Dependencies renders a flat list, such as direct or flattened reads.
	Dependencies(deps []*api.Dependency) error
	// Tree renders a recursive read rooted at root.
	Tree(root string, deps []*api.Dependency) error
	// Changes renders the edge mutations of a command.
	Changes(changes []Change) error
}

// New creates the formatter for options.Format. A nil Out writes to stdout.
func New(options Options) Formatter {
	if options.Out == nil {
		options.Out = os.Stdout
	}
	switch options.Format {
	case FormatJSON:
		return &JSONFormatter{options: options}
	case FormatYAML:
		return &YAMLFormatter{options: options}
	default:
		return &TableFormatter{options: options}
	}
}
