package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go-job-acquisition/internal/engine"
	"go-job-acquisition/internal/session"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one acquisition per platform",
	Long:  "Negotiates a session on each selected platform, walks the search results for the enabled titles and writes new listings to the configured outputs. Security checks are resolved by pressing Enter once solved in the browser window.",
	RunE:  runRun,
}

var (
	runPlatforms  []string
	runMaxResults int
	runMaxPages   int
)

func init() {
	runCmd.Flags().StringSliceVarP(&runPlatforms, "platform", "p", nil, "Platforms to run (default: every enabled platform)")
	runCmd.Flags().IntVar(&runMaxResults, "max-results", 0, "Override search.max_results")
	runCmd.Flags().IntVar(&runMaxPages, "max-pages", 0, "Override search.max_pages")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	names, err := selectPlatforms(cfg, runPlatforms)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	resolver := session.NewStdinResolver(os.Stdin, os.Stderr)
	reports, err := a.acquireAll(ctx, names, resolver, engine.Options{MaxResults: runMaxResults, MaxPages: runMaxPages})

	total := 0
	for _, r := range reports {
		total += len(r.Records)
	}
	a.log.Info().Int("platforms", len(names)).Int("records", total).Msg("📦 All runs finished")
	if errors.Is(ctx.Err(), context.Canceled) {
		a.log.Warn().Msg("⛔ Interrupted, partial results kept")
	}
	return err
}
