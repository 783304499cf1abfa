package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tether/internal/formatting"
	"tether/pkg/logging"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync [name...]",
	Short: "Rebuild dependency edges from instance environments",
	Long: `Upsert instances into the dependency graph and reconcile their outgoing
edges with the hostnames referenced in their environment.

Without arguments every instance in the directory is synced. All nodes are
written before any environment is resolved, so instances may reference each
other regardless of order.

Examples:
  tether sync
  tether sync web api
  tether sync --owner 42 web`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
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

	instances, err := findInstances(ctx, svc.Directory, args)
	if err != nil {
		return err
	}

	// Syncing a subset still needs every target present in the graph.
	all, err := svc.Directory.List(ctx)
	if err != nil {
		return err
	}
	for _, inst := range all {
		if err := svc.Deps.UpsertNode(ctx, inst); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", inst.Name, err)
		}
	}

	var changes []formatting.Change
	for _, inst := range instances {
		before, err := edgeSnapshot(ctx, svc.Deps, inst.ID)
		if err != nil {
			return err
		}
		res, err := svc.Resolver.SetDependenciesFromEnvironment(ctx, inst, "")
		if err != nil {
			return fmt.Errorf("failed to sync %s: %w", inst.Name, err)
		}
		after, err := edgeSnapshot(ctx, svc.Deps, inst.ID)
		if err != nil {
			return err
		}
		logging.Debug("CLI", "Synced %s: %d added, %d removed, %d unchanged",
			inst.Name, len(res.Added), len(res.Removed), len(res.Unchanged))
		changes = append(changes, diffEdges(inst.Name, before, after)...)
	}
	logging.Info("CLI", "Synced %d instances, %d edge changes", len(instances), len(changes))

	return formatter.Changes(changes)
}
