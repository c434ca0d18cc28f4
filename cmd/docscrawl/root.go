package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/docscrawl/internal/config"
)

// NewRootCmd creates the root command for docscrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docscrawl",
		Short: "Resumable crawler for SDK documentation sites",
		Long: `docscrawl crawls an SDK documentation site in paced batches and builds an
index of the API methods, callbacks and code examples it documents.

Progress is checkpointed after every batch and every few pages, so an
interrupted crawl (Ctrl-C, crash, network loss) resumes with "continue"
without fetching any page twice.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", config.LogFormatText, "Log format on stderr (text or json)")

	cmd.AddCommand(NewStartCmd())
	cmd.AddCommand(NewContinueCmd())
	cmd.AddCommand(NewRestartCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewSummaryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
