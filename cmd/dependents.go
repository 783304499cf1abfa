package cmd

import (
	"github.com/spf13/cobra"
)

// dependentsCmd represents the dependents command
var dependentsCmd = &cobra.Command{
	Use:   "dependents <name>",
	Short: "Show which instances depend on an instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runDependents,
}

func init() {
	rootCmd.AddCommand(dependentsCmd)
}

func runDependents(cmd *cobra.Command, args []string) error {
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

	dependents, err := svc.Deps.GetDependents(ctx, inst.ID)
	if err != nil {
		return err
	}
	return formatter.Dependencies(dependents)
}
