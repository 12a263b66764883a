package main

import (
	"os"

	"github.com/aretw0/asyncsoap/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Exposes the service operations as a JSON API over HTTP:
POST /operations/{operation}, GET /operations, /openapi.json, /health and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Gateway.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("metrics") {
			cfg.Gateway.Metrics, _ = cmd.Flags().GetBool("metrics")
		}

		var opts []cli.AppOption
		if cfg.Gateway.Metrics {
			opts = append(opts, cli.WithMetrics())
		}
		app, err := cli.NewApp(cfg, cli.NewLogger(cfg.LogLevel), opts...)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.Serve(ctx, app, cfg.Gateway.Port, os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
}
