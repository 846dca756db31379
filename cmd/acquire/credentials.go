package main

import (
	"bufio"
	"fmt"
	"strings"

	"go-job-acquisition/internal/config"
	"go-job-acquisition/internal/listing"

	"github.com/spf13/cobra"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage platform passwords in the OS keychain",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set <platform> <email>",
	Short: "Store a platform password (read from stdin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, ok := listing.ParsePlatform(args[0])
		if !ok {
			return fmt.Errorf("unknown platform %q", args[0])
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s on %s: ", args[1], p)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return fmt.Errorf("empty password")
		}
		if err := config.StorePassword(p.Key(), args[1], password); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🔐 Stored %s password for %s\n", p.Key(), args[1])
		return nil
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete <platform> <email>",
	Short: "Remove a stored platform password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, ok := listing.ParsePlatform(args[0])
		if !ok {
			return fmt.Errorf("unknown platform %q", args[0])
		}
		return config.DeletePassword(p.Key(), args[1])
	},
}

func init() {
	credentialsCmd.AddCommand(credentialsSetCmd, credentialsDeleteCmd)
	rootCmd.AddCommand(credentialsCmd)
}
