package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/rules"
)

func newRulesCmd() *cobra.Command {
	var configPath string
	var categories []string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List detection rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := rules.DefaultCatalog()
			if configPath != "" {
				var err error
				if _, catalog, err = loadConfig(configPath); err != nil {
					return err
				}
			}

			filter := make([]rules.ThreatType, 0, len(categories))
			for _, c := range categories {
				t := rules.ThreatType(c)
				if !t.Valid() {
					return fmt.Errorf("unknown category %q", c)
				}
				filter = append(filter, t)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tSEVERITY\tSCORE\tPATTERNS")
			for _, r := range catalog.ListRules(filter...) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n", r.ID, r.Name, r.Category, r.Severity, r.Score, len(r.Patterns))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Include custom rules from this config file")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Only list these categories")

	return cmd
}
