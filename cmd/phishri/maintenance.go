package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
	"github.com/Stryk91/PhiSHRI/internal/server"
	"github.com/Stryk91/PhiSHRI/internal/tools"
)

// withManager runs fn against a manager over the configured corpus.
func (a *app) withManager(fn func(*knowledge.Manager) error) error {
	m, _, cleanup := server.NewManager(a.cfg, a.log.Logger)
	defer cleanup()
	return fn(m)
}

func (a *app) indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage corpus indexes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Rescan the corpus and rewrite the hash table and full-text index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withManager(func(m *knowledge.Manager) error {
				res, err := m.RebuildIndexes()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Indexed %d doors\n", res.DoorsIndexed)
				fmt.Fprintf(out, "Hash table: %s\n", res.HashTablePath)
				if res.SearchIndexed {
					fmt.Fprintln(out, "Full-text index: refreshed")
				}
				return nil
			})
		},
	})
	return cmd
}

func (a *app) auditCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "audit [scope]",
		Short: "Check doors for missing prerequisites and broken references",
		Long: `Audit every door (scope "all", the default), one category, or a single
door code. With --fix, dangling references are dropped and indexes rebuilt.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := knowledge.ScopeAll
			if len(args) == 1 {
				scope = args[0]
			}
			return a.withManager(func(m *knowledge.Manager) error {
				res, err := m.Audit(scope, fix)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), trimReport(tools.FormatAudit(res)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Drop dangling references and rebuild indexes")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	var granularity string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			granularity = strings.ToLower(strings.TrimSpace(granularity))
			switch granularity {
			case knowledge.GranularitySummary, knowledge.GranularityCategory, knowledge.GranularityDetailed:
			default:
				return fmt.Errorf("unknown granularity %q (want summary, category or detailed)", granularity)
			}
			return a.withManager(func(m *knowledge.Manager) error {
				st, err := m.Stats(granularity)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), trimReport(tools.FormatStats(st, granularity)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&granularity, "granularity", knowledge.GranularitySummary, "summary, category or detailed")
	return cmd
}

// trimReport trims trailing blank lines from a markdown report.
func trimReport(s string) string {
	return strings.TrimRight(s, "\n")
}
