package main

import (
	"os"

	"github.com/aretw0/asyncsoap/internal/cli"
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call <operation>",
	Short: "Call an operation and print the result",
	Long: `Calls a SOAP operation. --args takes a JSON object (the body parts, keyed by
element name) or a JSON array (positional arguments).`,
	Example: `  asyncsoap call AddInteger --args '{"Arg1": 2, "Arg2": 3}'
  asyncsoap call LookupCity --args '{"zip": "90210"}' --output table`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		opts := cli.CallOptions{Operation: args[0]}
		opts.Args, _ = cmd.Flags().GetString("args")
		opts.Options, _ = cmd.Flags().GetString("options")
		opts.Headers, _ = cmd.Flags().GetStringArray("header")
		opts.Format, _ = cmd.Flags().GetString("output")
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")

		return cli.RunCall(ctx, app, opts, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().String("args", "", "Arguments as JSON (object or array)")
	callCmd.Flags().String("options", "", "Call options as JSON (location, uri, soap_action, request_options)")
	callCmd.Flags().StringArrayP("header", "H", nil, "Input header as [namespace|]name=value (repeatable)")
	callCmd.Flags().StringP("output", "o", cli.FormatAuto, "Output format: auto, json, table")
	callCmd.Flags().Duration("timeout", 0, "Give up waiting after this long (0 waits for the transport timeout)")
}
