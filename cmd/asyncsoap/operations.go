package main

import (
	"os"

	"github.com/aretw0/asyncsoap/internal/cli"
	"github.com/spf13/cobra"
)

var operationsCmd = &cobra.Command{
	Use:     "operations",
	Aliases: []string{"ops"},
	Short:   "List the operations the service exposes",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		format, _ := cmd.Flags().GetString("output")
		return cli.RunOperations(cmd.Context(), app, format, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(operationsCmd)
	operationsCmd.Flags().StringP("output", "o", cli.FormatAuto, "Output format: auto, json, table")
}
