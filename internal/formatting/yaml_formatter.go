package formatting

import (
	"gopkg.in/yaml.v3"

	"tether/internal/api"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// Dependencies writes deps as a YAML sequence.
func (f *YAMLFormatter) Dependencies(deps []*api.Dependency) error {
	return f.write(nonNil(deps))
}

// Tree writes the nested dependencies under their root name.
func (f *YAMLFormatter) Tree(root string, deps []*api.Dependency) error {
	return f.write(map[string]interface{}{
		"name":         root,
		"dependencies": nonNil(deps),
	})
}

// Changes writes changes as a YAML sequence.
func (f *YAMLFormatter) Changes(changes []Change) error {
	if changes == nil {
		changes = []Change{}
	}
	return f.write(changes)
}

func (f *YAMLFormatter) write(v interface{}) error {
	enc := yaml.NewEncoder(f.options.Out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
