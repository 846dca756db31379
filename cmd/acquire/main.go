// Package main is the acquire CLI: it runs job listing acquisitions and serves the operator API.
package main

import (
	"fmt"
	"os"

	"go-job-acquisition/internal/config"
	"go-job-acquisition/internal/logger"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "acquire",
	Short:        "Job listing acquisition engine",
	Long:         "Logs into job platforms with a real browser, walks search results for the titles you want and writes every new listing to CSV, JSON, PostgreSQL or Redis.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config YAML (default configs/config.yaml, or CONFIG_PATH)")
}

// loadConfig is shared by the commands that drive the engine.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
