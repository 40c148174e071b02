package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mill",
	Short: "Sawmill management service",
	Long:  `Backend service for sawmill operations: inventory, orders, maintenance, scheduling and board foot pricing`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
