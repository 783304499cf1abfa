package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tether/cmd"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "dev", version)
}

func TestVersionVariable(t *testing.T) {
	tests := []struct {
		name     string
		setValue string
		expected string
	}{
		{name: "default version", setValue: "", expected: "dev"},
		{name: "custom version", setValue: "v1.0.0", expected: "v1.0.0"},
		{name: "semantic version", setValue: "2.3.4-beta.1", expected: "2.3.4-beta.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalVersion := version
			defer func() { version = originalVersion }()

			if tt.setValue != "" {
				version = tt.setValue
			}
			assert.Equal(t, tt.expected, version)
		})
	}
}

func TestMainPackageIntegration(t *testing.T) {
	original := cmd.GetVersion()
	defer cmd.SetVersion(original)

	for _, v := range []string{"dev", "1.0.0", "v2.0.0-rc1"} {
		cmd.SetVersion(v)
		assert.Equal(t, v, cmd.GetVersion())
	}
}
