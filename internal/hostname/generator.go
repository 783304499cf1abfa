// Package hostname renders elastic hostnames and recognises them inside
// environment variable values.
package hostname

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const (
	DefaultTemplate    = "{{ .Name | lower }}-{{ .Environment }}-{{ .Owner | lower }}.{{ .Domain }}"
	DefaultDomain      = "runnableapp.com"
	DefaultEnvironment = "staging"

	// labelPlaceholder stands in for the instance name when the template is
	// turned into a matching pattern.
	labelPlaceholder = "tetherlabelplaceholder"
	labelPattern     = `[a-z0-9][a-z0-9-]*`
)

// Config selects the hostname shape.
type Config struct {
	Template    string
	Domain      string
	Environment string
}

// Generator renders hostnames from a sprig-enabled text/template.
type Generator struct {
	cfg  Config
	tmpl *template.Template

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

type templateData struct {
	Name        string
	Owner       string
	Environment string
	Domain      string
}

// NewGenerator parses cfg.Template. Empty fields take their defaults.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Template == "" {
		cfg.Template = DefaultTemplate
	}
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	if cfg.Environment == "" {
		cfg.Environment = DefaultEnvironment
	}

	tmpl, err := template.New("hostname").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("invalid hostname template: %w", err)
	}

	g := &Generator{cfg: cfg, tmpl: tmpl, patterns: make(map[string]*regexp.Regexp)}

	probe, err := g.render(labelPlaceholder, "owner")
	if err != nil {
		return nil, err
	}
	if !strings.Contains(probe, labelPlaceholder) {
		return nil, fmt.Errorf("hostname template %q does not render the instance name", cfg.Template)
	}
	return g, nil
}

// Config returns the effective configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate returns the lower-cased elastic hostname of logicalName owned by
// ownerUsername.
func (g *Generator) Generate(logicalName, ownerUsername string) (string, error) {
	if logicalName == "" {
		return "", fmt.Errorf("instance name is required")
	}
	return g.render(logicalName, ownerUsername)
}

func (g *Generator) render(name, owner string) (string, error) {
	var buf bytes.Buffer
	err := g.tmpl.Execute(&buf, templateData{
		Name:        name,
		Owner:       owner,
		Environment: g.cfg.Environment,
		Domain:      g.cfg.Domain,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render hostname for %s: %w", name, err)
	}
	return strings.ToLower(strings.TrimSpace(buf.String())), nil
}

// Pattern returns a case-insensitive expression matching any hostname of
// ownerUsername's environment, wherever it appears in a string.
func (g *Generator) Pattern(ownerUsername string) *regexp.Regexp {
	key := strings.ToLower(ownerUsername)

	g.mu.Lock()
	defer g.mu.Unlock()

	if re, ok := g.patterns[key]; ok {
		return re
	}

	rendered, err := g.render(labelPlaceholder, key)
	if err != nil {
		// The probe render in NewGenerator succeeded with the same template,
		// so only a pathological owner value can get here.
		rendered = labelPlaceholder + "-" + g.cfg.Environment + "-" + key + "." + g.cfg.Domain
	}
	quoted := regexp.QuoteMeta(rendered)
	expr := `(?i)\b` + strings.Replace(quoted, labelPlaceholder, labelPattern, 1) + `\b`

	re := regexp.MustCompile(expr)
	g.patterns[key] = re
	return re
}

// FindAll returns the distinct lower-cased hostnames of ownerUsername's
// environment found in value, in first-seen order.
func (g *Generator) FindAll(value, ownerUsername string) []string {
	matches := g.Pattern(ownerUsername).FindAllString(value, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.ToLower(m)
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
