package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tether/internal/api"
	"tether/internal/formatting"
	"tether/internal/instance"
)

var isolateChildren []string

// isolateCmd represents the isolate command
var isolateCmd = &cobra.Command{
	Use:   "isolate <master>",
	Short: "Rewire an isolation group",
	Long: `Point the members of an isolation group at each other.

Each member's edges to an instance that has a fork in the group are moved to
that fork. Edges to forks of other groups are moved back to the original
instance, or dropped if no original exists.

The group is formed by the master and its children. Without --child every
directory instance sharing the master's isolation id is a child. Members must
already be synced into the graph.

Examples:
  tether isolate a1b2c3--web
  tether isolate a1b2c3--web --child a1b2c3--api --child a1b2c3--db`,
	Args: cobra.ExactArgs(1),
	RunE: runIsolate,
}

func init() {
	rootCmd.AddCommand(isolateCmd)

	isolateCmd.Flags().StringSliceVar(&isolateChildren, "child", nil, "Child instance of the group (repeatable)")
}

func runIsolate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}

	application, err := openApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()
	svc := application.Services()

	master, err := findInstance(ctx, svc.Directory, args[0])
	if err != nil {
		return err
	}
	if !master.IsIsolated() {
		return api.NewConflictError("instance", master.Name, "not part of an isolation group")
	}

	children, err := isolationChildren(ctx, svc.Directory, master)
	if err != nil {
		return err
	}
	group := append([]*api.Instance{master}, children...)

	before := make(map[string]map[string]*api.Dependency, len(group))
	for _, member := range group {
		if before[member.ID], err = edgeSnapshot(ctx, svc.Deps, member.ID); err != nil {
			return err
		}
	}

	// A partial failure still leaves the successful members rewired, so
	// report what changed before returning the error.
	rewireErr := svc.Isolation.UpdateDependenciesForIsolation(ctx, master, children)

	var changes []formatting.Change
	for _, member := range group {
		after, err := edgeSnapshot(ctx, svc.Deps, member.ID)
		if err != nil {
			return err
		}
		changes = append(changes, diffEdges(member.Name, before[member.ID], after)...)
	}
	if err := formatter.Changes(changes); err != nil {
		return err
	}
	return rewireErr
}

func isolationChildren(ctx context.Context, dir instance.Directory, master *api.Instance) ([]*api.Instance, error) {
	if len(isolateChildren) > 0 {
		children, err := findInstances(ctx, dir, isolateChildren)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if c.IsolatedID != master.IsolatedID {
				return nil, api.NewConflictError("isolation group", master.IsolatedID,
					fmt.Sprintf("instance %s belongs to group %q", c.Name, c.IsolatedID))
			}
		}
		return children, nil
	}
	members, err := dir.FindByIsolation(ctx, master.IsolatedID)
	if err != nil {
		return nil, err
	}
	children := make([]*api.Instance, 0, len(members))
	for _, m := range members {
		if m.ID != master.ID {
			children = append(children, m)
		}
	}
	return children, nil
}
