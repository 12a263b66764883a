package main

import (
	"fmt"

	"github.com/aretw0/asyncsoap/internal/cli"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of asyncsoap",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("asyncsoap version %s\n", cli.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
