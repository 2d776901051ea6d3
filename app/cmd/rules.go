package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"archie/internal/infrastructure/rules"
)

var errRuleGaps = errors.New("rule registry is incomplete")

func newRulesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print rule coverage per diagram kind and notation",
		Long:  "Lists which rule entry serves each diagram kind in each notation and exits non-zero when any pair falls back to generic instructions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCoverage(cmd.OutOrStdout(), rules.NewRegistry())
		},
	}
}

func printCoverage(out io.Writer, registry *rules.Registry) error {
	covered, gaps := registry.Check()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNOTATION\tENTRY")
	for _, c := range covered {
		notation := string(c.Notation)
		if notation == "" {
			notation = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Kind, notation, c.Entry)
	}
	for _, g := range gaps {
		fmt.Fprintf(tw, "%s\t%s\tMISSING (%s)\n", g.Kind, g.Notation, g.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(gaps) > 0 {
		return fmt.Errorf("%w: %d gap(s)", errRuleGaps, len(gaps))
	}
	return nil
}
