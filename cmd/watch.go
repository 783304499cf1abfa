package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tether/internal/config"
	"tether/internal/instance"
	"tether/internal/reconciler"
	"tether/pkg/logging"
)

var watchDebounce time.Duration

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the graph in sync with the topology file",
	Long: `Sync the whole topology, then re-sync every time the topology file
changes. Instances removed from the file have their graph nodes deleted.

Only the yaml directory driver can be watched. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", reconciler.DefaultDebounce, "Quiet period after a change before re-syncing")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := openApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()
	svc := application.Services()

	dc := application.Config().Directory
	dir, ok := svc.Directory.(*instance.MemoryDirectory)
	if dc.Driver != config.DirectoryDriverYAML || !ok {
		return fmt.Errorf("watch requires the %s directory driver, got %s", config.DirectoryDriverYAML, dc.Driver)
	}

	w, err := reconciler.NewWatcher(dc.Path, watchDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	rec := reconciler.New(svc.Deps, svc.Resolver)
	resync := func(ctx context.Context) {
		instances, err := instance.ReadTopology(dc.Path, svc.Hostnames)
		if err != nil {
			logging.Error("CLI", err, "Keeping the previous topology")
			return
		}
		dir.Replace(instances...)

		report, err := rec.Reconcile(ctx, instances)
		if err != nil {
			logging.Error("CLI", err, "Reconcile finished with %d failed instances", len(report.Failed))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s synced %d instances: %d edges added, %d removed, %d nodes deleted\n",
			time.Now().Format(time.TimeOnly), report.Upserted, report.Added, report.Removed, len(report.Deleted))
	}

	resync(ctx)
	return w.Run(ctx, resync)
}
