package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dronesim",
	Short: "Multi-session drone flight simulator",
	Long:  "Dronesim runs a drone flight simulator server where every connection flies its own drone, plus a pilot client to fly one.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pilotCmd)
}
