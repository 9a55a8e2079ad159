package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/stats"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/store"
)

func newStatsCmd() *cobra.Command {
	var configPath string
	var window string
	var format string
	var outPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize audit records for a time window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			w, err := stats.ParseWindow(window, time.Now())
			if err != nil {
				return err
			}

			backend, err := store.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			summary, err := stats.NewAggregator(backend).GetStats(cmd.Context(), w)
			if err != nil {
				return err
			}

			switch format {
			case "", "text":
				return stats.WriteOutput(outPath, []byte(stats.RenderText(summary)))
			case "md":
				return stats.WriteOutput(outPath, []byte(stats.RenderMarkdown(summary)))
			case "json":
				data, err := stats.RenderJSON(summary)
				if err != nil {
					return err
				}
				return stats.WriteOutput(outPath, data)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&window, "window", "today", "Window: today, a duration (e.g. 90m) or days (e.g. 7d)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|md|json")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default stdout)")

	return cmd
}
