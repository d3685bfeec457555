package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Exit codes. The pre-commit hook blocks only on ExitBlocked.
const (
	ExitSuccess            = 0
	ExitBlocked            = 1
	ExitUsageError         = 2
	ExitBackendUnavailable = 3
	ExitRuntimeError       = 4
)

var rootCmd = &cobra.Command{
	Use:          "gatekeep",
	Short:        "Local LLM review gate for staged changes",
	Long:         "Gatekeep reviews staged changes with a locally hosted model and returns a pass/warn/fail verdict with deterministic exit codes.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code. An interrupt
// cancels the review in progress.
func Run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:])
}

func execute(ctx context.Context, args []string) int {
	exitCode = ExitSuccess
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print gatekeep version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gatekeep version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}
