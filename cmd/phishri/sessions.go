package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Stryk91/PhiSHRI/internal/session"
)

// defaultSessionMaxAge is the cleanup cutoff when --older-than is not set.
const defaultSessionMaxAge = 30 * 24 * time.Hour

func (a *app) sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and prune stored agent sessions",
	}

	var agent string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := session.List(a.cfg.SessionsPath(), agent)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AGENT\tSESSION\tLAST ACTIVE\tPATH")
			for _, s := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.AgentID, s.SessionID, s.ModTime.Format(time.RFC3339), s.Dir)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&agent, "agent", "", "Only sessions of this agent")

	var olderThan time.Duration
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove sessions inactive for longer than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}
			n, err := session.Cleanup(a.cfg.SessionsPath(), olderThan, time.Now())
			if err != nil {
				return err
			}
			a.log.Info("sessions cleaned up", "removed", n, "older_than", olderThan)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d session(s) inactive for more than %s\n", n, olderThan)
			return nil
		},
	}
	cleanup.Flags().DurationVar(&olderThan, "older-than", defaultSessionMaxAge, "Inactivity cutoff")

	cmd.AddCommand(list, cleanup)
	return cmd
}
