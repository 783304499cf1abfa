package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"tether/internal/api"
	"tether/internal/isolation"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeNotFound indicates a named instance or graph node does not exist.
	ExitCodeNotFound = 2
	// ExitCodeStoreUnavailable indicates the graph store could not be reached in time.
	ExitCodeStoreUnavailable = 3
	// ExitCodeRewireFailed indicates one or more isolation group members were not rewired.
	ExitCodeRewireFailed = 4
)

var (
	rootConfigPath string
	rootOwner      string
	rootDebug      bool
	rootOutput     string
)

// rootCmd represents the base command for the tether application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Track and rewire dependencies between instances",
	Long: `tether maintains the dependency graph between instances. Edges are
derived from hostnames found in each instance's environment, and isolation
groups are rewired so that forked instances talk to each other instead of
their originals.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tether version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var rewireErr *isolation.RewireError
	if errors.As(err, &rewireErr) {
		return ExitCodeRewireFailed
	}

	if api.IsStoreUnavailable(err) {
		return ExitCodeStoreUnavailable
	}

	if api.IsNotFound(err) {
		return ExitCodeNotFound
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config-path", "", "Configuration directory (default is $HOME/.config/tether)")
	rootCmd.PersistentFlags().StringVar(&rootOwner, "owner", "", "Owner id used to resolve instance names")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&rootOutput, "output", "o", "table", "Output format (table, json, yaml)")

	rootCmd.AddCommand(newVersionCmd())
}
