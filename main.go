package main

import (
	"os"

	"github.com/cottand/tyrel/cmd"
	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "tyrel [subcommand]",
	Short:        "tyrel checks trait impls of a crate graph for overlap and orphan rule violations,\n and proves trait goals against them",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.OverlapCmd)
	rootCmd.AddCommand(cmd.OrphanCmd)
	rootCmd.AddCommand(cmd.ProveCmd)
}
