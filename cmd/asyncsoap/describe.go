package main

import (
	"fmt"
	"os"

	"github.com/aretw0/asyncsoap/internal/cli"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Check the WSDL and print the resolved service",
	Long:  `Loads and parses the WSDL, then reports the SOAP port that calls would use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.WSDL == "" {
			return fmt.Errorf("describe needs a WSDL (--wsdl or config)")
		}
		format, _ := cmd.Flags().GetString("output")
		return cli.RunDescribe(cmd.Context(), cfg, cli.NewLogger(cfg.LogLevel), format, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringP("output", "o", cli.FormatAuto, "Output format: auto, json, table")
}
