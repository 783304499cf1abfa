package formatting

import (
	"fmt"

	"tether/internal/api"
)

// JSONFormatter provides JSON output formatting
type JSONFormatter struct {
	options Options
}

// Dependencies writes deps as a JSON array.
func (f *JSONFormatter) Dependencies(deps []*api.Dependency) error {
	return f.write(nonNil(deps))
}

// Tree writes the nested dependencies under their root name.
func (f *JSONFormatter) Tree(root string, deps []*api.Dependency) error {
	return f.write(map[string]interface{}{
		"name":         root,
		"dependencies": nonNil(deps),
	})
}

// Changes writes changes as a JSON array.
func (f *JSONFormatter) Changes(changes []Change) error {
	if changes == nil {
		changes = []Change{}
	}
	return f.write(changes)
}

func (f *JSONFormatter) write(v interface{}) error {
	_, err := fmt.Fprintln(f.options.Out, PrettyJSON(v))
	return err
}

func nonNil(deps []*api.Dependency) []*api.Dependency {
	if deps == nil {
		return []*api.Dependency{}
	}
	return deps
}
