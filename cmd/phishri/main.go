// PhiSHRI: door-based context knowledge server
//
// Serves a corpus of small JSON context documents ("doors") to AI agents
// over newline-delimited JSON-RPC on stdio, and offers maintenance
// commands for the same corpus.
//
// Usage:
//
//	phishri serve [--watch]       # Start the server (stdio transport)
//	phishri index rebuild         # Rescan the corpus and rewrite indexes
//	phishri audit [scope] [--fix] # Check references
//	phishri stats                 # Corpus statistics
//	phishri sessions list         # Stored agent sessions
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Stryk91/PhiSHRI/internal/config"
	"github.com/Stryk91/PhiSHRI/internal/logging"
	"github.com/Stryk91/PhiSHRI/internal/server"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the resolved configuration between cobra hooks and
// subcommands.
type app struct {
	overrides config.Overrides
	cfg       config.Config
	log       *logging.Logger
	errOut    io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{errOut: errOut}

	root := &cobra.Command{
		Use:   "phishri",
		Short: "Door-based context knowledge server",
		Long: `PhiSHRI serves a corpus of JSON context documents ("doors") to AI
agents over JSON-RPC on stdio.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "phishri": {
        "command": "phishri",
        "args": ["serve"]
      }
    }
  }`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	a.overrides.Register(root.PersistentFlags())

	root.AddCommand(
		a.serveCmd(),
		a.indexCmd(),
		a.auditCmd(),
		a.statsCmd(),
		a.sessionsCmd(),
		versionCmd(),
	)
	return root
}

// setup resolves the configuration and installs the process logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := a.overrides.Resolve(cmd.Flags())
	if err != nil {
		return err
	}
	l, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Journal: cfg.LogJournal,
		Stderr:  a.errOut,
	})
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	slog.SetDefault(l.Logger)
	a.cfg, a.log = cfg, l
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.log == nil {
		return nil
	}
	return a.log.Close()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Printing the version needs no configuration.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "phishri v%s\n", server.Version)
		},
	}
}
