package events

import (
	"strings"
)

// MessageTemplateEngine renders short human readable messages for events.
type MessageTemplateEngine struct {
	templates map[Type]string
}

// NewMessageTemplateEngine creates a new message template engine with default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	engine := &MessageTemplateEngine{
		templates: make(map[Type]string),
	}
	engine.loadDefaultTemplates()
	return engine
}

func (e *MessageTemplateEngine) loadDefaultTemplates() {
	e.templates[TypeEdgeAdded] = "Instance {{.From}} now depends on {{.To}}{{if .Hostname}} via {{.Hostname}}{{end}}"
	e.templates[TypeEdgeRemoved] = "Instance {{.From}} no longer depends on {{.To}}"
	e.templates[TypeNodeUpserted] = "Instance {{.From}} registered in the dependency graph{{if .Hostname}} as {{.Hostname}}{{end}}"
	e.templates[TypeNodeDeleted] = "Instance {{.From}} and all of its edges were removed from the dependency graph"
}

// SetTemplate overrides the template for an event type.
func (e *MessageTemplateEngine) SetTemplate(t Type, template string) {
	e.templates[t] = template
}

// Render produces the message for evt. Unknown types render as the type name.
func (e *MessageTemplateEngine) Render(evt Event) string {
	template, ok := e.templates[evt.Type]
	if !ok {
		return string(evt.Type)
	}

	result := e.renderConditional(template, "{{if .Hostname}}", "{{end}}", evt.Hostname != "")

	replacer := strings.NewReplacer(
		"{{.From}}", evt.From,
		"{{.To}}", evt.To,
		"{{.Hostname}}", evt.Hostname,
		"{{.Type}}", string(evt.Type),
	)
	return replacer.Replace(result)
}

// renderConditional keeps or drops the first startMarker...endMarker block.
func (e *MessageTemplateEngine) renderConditional(template, startMarker, endMarker string, condition bool) string {
	startIndex := strings.Index(template, startMarker)
	if startIndex == -1 {
		return template
	}

	endIndex := strings.Index(template[startIndex:], endMarker)
	if endIndex == -1 {
		return template
	}
	endIndex += startIndex

	before := template[:startIndex]
	after := template[endIndex+len(endMarker):]
	if condition {
		return before + template[startIndex+len(startMarker):endIndex] + after
	}
	return before + after
}
