package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TetherConfig)
		fields []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*TetherConfig) {},
		},
		{
			name:   "unknown log level",
			mutate: func(c *TetherConfig) { c.Logging.Level = "loud" },
			fields: []string{"logging.level"},
		},
		{
			name:   "unknown graph driver",
			mutate: func(c *TetherConfig) { c.Graph.Driver = "neo4j" },
			fields: []string{"graph.driver"},
		},
		{
			name:   "badger without path",
			mutate: func(c *TetherConfig) { c.Graph.Path = "" },
			fields: []string{"graph.path"},
		},
		{
			name:   "memory without path",
			mutate: func(c *TetherConfig) {
				c.Graph.Driver = GraphDriverMemory
				c.Graph.Path = ""
			},
		},
		{
			name:   "postgres without dsn",
			mutate: func(c *TetherConfig) { c.Directory.Driver = DirectoryDriverPostgres },
			fields: []string{"directory.dsn"},
		},
		{
			name: "broken hostname template",
			mutate: func(c *TetherConfig) {
				c.Hostname.Template = "{{ .Name "
			},
			fields: []string{"hostname.template"},
		},
		{
			name: "several problems",
			mutate: func(c *TetherConfig) {
				c.Graph.RequestTimeout = 0
				c.Isolation.MaxConcurrency = -1
				c.Cache.TTL = -1
			},
			fields: []string{"graph.requestTimeout", "isolation.maxConcurrency", "cache.ttl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			var got []string
			for _, ve := range verrs {
				got = append(got, ve.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("a", "is bad")
	assert.Equal(t, "field 'a': is bad", errs.Error())

	errs.Add("b", "is worse", 3)
	assert.Equal(t, "validation failed: field 'a': is bad; field 'b': is worse", errs.Error())
}
