package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/asyncsoap/internal/cli"
	"github.com/aretw0/asyncsoap/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "asyncsoap",
	Short: "asyncsoap calls SOAP services asynchronously",
	Long: `asyncsoap resolves a WSDL (or an explicit endpoint) and calls its operations,
from the command line, through an HTTP gateway, or as an MCP server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cli.ErrCallFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default $"+config.EnvPath+" or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().String("wsdl", "", "WSDL location: URL, file path or data URI (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.SilenceErrors = true
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Path(path))
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("wsdl") {
		cfg.WSDL, _ = cmd.Flags().GetString("wsdl")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	return cfg, nil
}

// loadApp builds the client described by the config and flags.
func loadApp(cmd *cobra.Command, opts ...cli.AppOption) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(cfg, cli.NewLogger(cfg.LogLevel), opts...)
}
