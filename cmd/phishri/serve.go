package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Stryk91/PhiSHRI/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	var watchCorpus bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("watch") {
				a.cfg.Watch = watchCorpus
			}

			s, cleanup, err := server.New(a.cfg, a.log.Logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			// Graceful shutdown on interrupt.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return s.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&watchCorpus, "watch", false, "Clear caches when corpus files change on disk")
	return cmd
}
