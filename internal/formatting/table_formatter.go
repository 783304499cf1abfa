package formatting

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tether/internal/api"
	pkgstrings "tether/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// Dependencies renders one row per dependency.
func (f *TableFormatter) Dependencies(deps []*api.Dependency) error {
	if len(deps) == 0 {
		f.formatEmptyMessage("No dependencies found")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"Name", "ID", "Hostname", "Isolated", "Children"})
	for _, d := range deps {
		t.AppendRow(table.Row{
			f.paint(text.FgHiCyan, d.Name),
			d.ID,
			pkgstrings.Truncate(d.Hostname, pkgstrings.DefaultColumnMaxLen),
			isolationLabel(d),
			len(d.Dependencies),
		})
	}
	t.AppendFooter(table.Row{"Total", len(deps)})
	t.Render()
	return nil
}

// Tree renders nested dependencies as a connected list. Nodes that were
// already expanded elsewhere in the tree appear without children.
func (f *TableFormatter) Tree(root string, deps []*api.Dependency) error {
	l := list.NewWriter()
	l.SetOutputMirror(f.options.Out)
	l.SetStyle(list.StyleConnectedRounded)

	l.AppendItem(f.paint(text.FgHiCyan, root))
	l.Indent()
	appendTree(l, deps)
	l.Render()
	return nil
}

func appendTree(l list.Writer, deps []*api.Dependency) {
	for _, d := range deps {
		l.AppendItem(fmt.Sprintf("%s (%s)", d.Name, d.Hostname))
		if len(d.Dependencies) > 0 {
			l.Indent()
			appendTree(l, d.Dependencies)
			l.UnIndent()
		}
	}
}

// Changes renders one row per edge mutation.
func (f *TableFormatter) Changes(changes []Change) error {
	if len(changes) == 0 {
		f.formatEmptyMessage("No changes")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"Instance", "Action", "Target", "Hostname"})
	for _, c := range changes {
		t.AppendRow(table.Row{
			c.Instance,
			f.actionLabel(c.Action),
			c.Target,
			pkgstrings.Truncate(c.Hostname, pkgstrings.DefaultColumnMaxLen),
		})
	}
	t.Render()
	return nil
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.Out)
	t.SetStyle(table.StyleRounded)
	return t
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(message string) {
	fmt.Fprintln(f.options.Out, f.paint(text.FgYellow, message))
}

func (f *TableFormatter) actionLabel(action string) string {
	switch action {
	case "added":
		return f.paint(text.FgGreen, action)
	case "removed":
		return f.paint(text.FgRed, action)
	default:
		return action
	}
}

func (f *TableFormatter) paint(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func isolationLabel(d *api.Dependency) string {
	switch {
	case d.IsolatedID == "":
		return "-"
	case d.IsIsolationGroupMaster:
		return "master"
	default:
		return "child"
	}
}
