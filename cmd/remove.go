package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete an instance's graph node and every edge touching it",
	Long: `Delete an instance's node from the dependency graph together with all
incoming and outgoing edges. The directory record is left untouched; a later
sync adds the node back.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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
	if err := svc.Deps.DeleteNode(ctx, inst.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", inst.Name, inst.ID)
	return nil
}
