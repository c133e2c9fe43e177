package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tessera"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tessera",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tessera version %s\n", tessera.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
