package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tether/internal/api"
	"tether/internal/app"
	"tether/internal/dependency"
	"tether/internal/formatting"
	"tether/internal/instance"
)

// openApplication bootstraps tether from the persistent flags.
func openApplication(cmd *cobra.Command) (*app.Application, error) {
	return app.NewApplication(cmd.Context(), app.NewConfig(rootDebug, false, rootConfigPath))
}

// newFormatter builds the formatter selected by --output.
func newFormatter(cmd *cobra.Command) (formatting.Formatter, error) {
	format, err := formatting.ParseOutputFormat(rootOutput)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	return formatting.New(formatting.Options{
		Format: format,
		Out:    out,
		Color:  out == os.Stdout,
	}), nil
}

// findInstance resolves a command line name to an instance record. With
// --owner set the name is looked up within that owner; otherwise it is tried
// as an id and then as a lower-cased name that must be unique.
func findInstance(ctx context.Context, dir instance.Directory, name string) (*api.Instance, error) {
	lower := strings.ToLower(name)
	if rootOwner != "" {
		return dir.FindByLowerNameAndOwner(ctx, lower, rootOwner)
	}

	inst, err := dir.FindByID(ctx, name)
	if err == nil {
		return inst, nil
	}
	if !api.IsNotFound(err) {
		return nil, err
	}

	all, err := dir.List(ctx)
	if err != nil {
		return nil, err
	}
	var matches []*api.Instance
	for _, candidate := range all {
		if candidate.LowerName == lower {
			matches = append(matches, candidate)
		}
	}
	switch len(matches) {
	case 0:
		return nil, api.NewInstanceNotFoundError(name)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("instance name %q matches %d owners, use --owner", name, len(matches))
	}
}

// findInstances resolves every name, or lists the whole directory when no
// names are given.
func findInstances(ctx context.Context, dir instance.Directory, names []string) ([]*api.Instance, error) {
	if len(names) == 0 {
		return dir.List(ctx)
	}
	out := make([]*api.Instance, 0, len(names))
	for _, name := range names {
		inst, err := findInstance(ctx, dir, name)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// edgeSnapshot returns the direct dependencies of id keyed by target id. A
// missing node has no edges.
func edgeSnapshot(ctx context.Context, deps *dependency.Service, id string) (map[string]*api.Dependency, error) {
	direct, err := deps.GetDependencies(ctx, id, dependency.GetOptions{})
	if api.IsNotFound(err) {
		return map[string]*api.Dependency{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string]*api.Dependency, len(direct))
	for _, d := range direct {
		out[d.ID] = d
	}
	return out, nil
}

// diffEdges reports the edges of one instance that appeared or disappeared
// between two snapshots, ordered by target name.
func diffEdges(instanceName string, before, after map[string]*api.Dependency) []formatting.Change {
	var changes []formatting.Change
	for id, d := range after {
		if _, ok := before[id]; !ok {
			changes = append(changes, formatting.Change{Instance: instanceName, Action: "added", Target: d.Name, Hostname: d.Hostname})
		}
	}
	for id, d := range before {
		if _, ok := after[id]; !ok {
			changes = append(changes, formatting.Change{Instance: instanceName, Action: "removed", Target: d.Name, Hostname: d.Hostname})
		}
	}
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Target != changes[j].Target {
			return changes[i].Target < changes[j].Target
		}
		return changes[i].Action < changes[j].Action
	})
	return changes
}
