package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"volbot/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "volbot",
		Short: "Volunteer coordination bot with event-relative scheduling",
	}
	rootCmd.PersistentFlags().String("config", "config.yaml", "path to the config file")
	rootCmd.PersistentFlags().String("env", ".env", "path to the .env file with secrets")

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.JobsCmd())
	rootCmd.AddCommand(cli.ExportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
