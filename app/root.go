// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pharmview",
	Short: "PharmView is a supply chain analytics service for pharmaceutical data",
	Long: `PharmView tracks pharmaceutical consumption across health facilities
and exposes dashboards, analytics and role-based administration
through a JSON API.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
