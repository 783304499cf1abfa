package cmd

import (
	"github.com/spf13/cobra"

	"tether/internal/dependency"
)

var (
	depsRecurse bool
	depsFlatten bool
)

// depsCmd represents the deps command
var depsCmd = &cobra.Command{
	Use:   "deps <name>",
	Short: "Show what an instance depends on",
	Long: `Show the dependencies of an instance.

By default only direct dependencies are listed. --recurse follows edges
transitively and prints a tree; adding --flatten lists every reachable
instance once, in the order it was first reached.

Examples:
  tether deps web
  tether deps web --recurse
  tether deps web --recurse --flatten -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)

	depsCmd.Flags().BoolVarP(&depsRecurse, "recurse", "r", false, "Follow dependencies transitively")
	depsCmd.Flags().BoolVar(&depsFlatten, "flatten", false, "With --recurse, list every reachable instance once")
}

func runDeps(cmd *cobra.Command, args []string) error {
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

	inst, err := findInstance(ctx, svc.Directory, args[0])
	if err != nil {
		return err
	}

	deps, err := svc.Deps.GetDependencies(ctx, inst.ID, dependency.GetOptions{
		Recurse: depsRecurse,
		Flatten: depsFlatten,
	})
	if err != nil {
		return err
	}

	if depsRecurse && !depsFlatten {
		return formatter.Tree(inst.Name, deps)
	}
	return formatter.Dependencies(deps)
}
