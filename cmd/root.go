package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lettera-hq/notifier/internal/build"
	"github.com/lettera-hq/notifier/internal/config"
)

var rootCmd = &cobra.Command{
	Use:     "lettera-notify",
	Short:   "Lettera notification dispatch engine",
	Long:    "Receives application events, resolves per-user notification preferences\nand fans deliveries out to in-app, email, chat, SMS and push channels.",
	Version: build.String(),
}

// Execute loads the environment config and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd.AddCommand(NewServeCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
