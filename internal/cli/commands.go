package cli

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/asyncsoap"
	"github.com/aretw0/asyncsoap/internal/config"
	"github.com/aretw0/asyncsoap/internal/presentation/tui"
	soaphttp "github.com/aretw0/asyncsoap/pkg/adapters/http"
	"github.com/aretw0/asyncsoap/pkg/adapters/mcp"
	"github.com/aretw0/asyncsoap/pkg/description"
	"github.com/aretw0/asyncsoap/pkg/wsdl"
)

// ErrCallFailed is returned after a failed call has been printed.
var ErrCallFailed = errors.New("call failed")

// CallOptions contains the configuration for the call command.
type CallOptions struct {
	Operation string
	Args      string // Raw JSON
	Options   string // Raw JSON
	Headers   []string
	Format    string
	Timeout   time.Duration
}

// RunCall performs one call and prints its outcome to out.
func RunCall(ctx context.Context, app *App, opts CallOptions, out io.Writer) error {
	args, err := ParseArguments(opts.Args)
	if err != nil {
		return err
	}
	options, err := ParseOptions(opts.Options)
	if err != nil {
		return err
	}
	headers, err := ParseHeaders(opts.Headers)
	if err != nil {
		return err
	}
	printer, err := NewPrinter(out, opts.Format)
	if err != nil {
		return err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	fut := app.Client.CallAsync(ctx, opts.Operation, args,
		asyncsoap.WithOptions(app.withDefaults(options)),
		asyncsoap.WithInputHeaders(headers...),
	)
	res, err := fut.WaitContext(ctx)
	if err != nil {
		app.Logger.Debug("call failed", "operation", opts.Operation, "err", err)
		if perr := printer.PrintError(err); perr != nil {
			return perr
		}
		return ErrCallFailed
	}
	return printer.PrintResult(opts.Operation, res)
}

// RunOperations prints the operations the service exposes.
func RunOperations(ctx context.Context, app *App, format string, out io.Writer) error {
	printer, err := NewPrinter(out, format)
	if err != nil {
		return err
	}
	ops, err := app.Client.Operations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list operations: %w", err)
	}
	return printer.PrintOperations(ops)
}

// Serve runs the HTTP gateway until ctx is done.
func Serve(ctx context.Context, app *App, port int, banner io.Writer) error {
	gwOpts := []soaphttp.GatewayOption{
		soaphttp.WithGatewayLogger(app.Logger),
		soaphttp.WithVersion(Version()),
	}
	if app.Registry != nil {
		gwOpts = append(gwOpts, soaphttp.WithMetrics(app.Registry))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           soaphttp.NewHandler(app, gwOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		if banner != nil {
			tui.PrintBanner(banner, Version())
		}
		app.Logger.Info("gateway listening", "address", srv.Addr, "wsdl", app.Config.WSDL)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.Logger.Info("shutting down gateway")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		return nil
	}
}

// ServeMCP runs the MCP server over stdio or SSE.
func ServeMCP(ctx context.Context, app *App, transport string, port int) error {
	srv, err := mcp.NewServer(ctx, app, Version(), mcp.WithLogger(app.Logger))
	if err != nil {
		return err
	}

	switch transport {
	case "stdio":
		app.Logger.Info("starting MCP server (stdio)")
		return srv.ServeStdio()
	case "sse":
		err := srv.ServeSSE(ctx, port)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	}
}

// ServiceSummary is the describe output.
type ServiceSummary struct {
	Name       string             `json:"name"`
	Port       string             `json:"port"`
	Endpoint   string             `json:"endpoint"`
	Namespace  string             `json:"namespace"`
	Version    string             `json:"soap_version"`
	Style      string             `json:"style"`
	Operations []OperationSummary `json:"operations"`
}

// OperationSummary describes one operation of a ServiceSummary.
type OperationSummary struct {
	Name       string `json:"name"`
	SOAPAction string `json:"soap_action"`
	Style      string `json:"style"`
	Input      string `json:"input"`
	Output     string `json:"output"`
}

// RunDescribe loads and parses the configured WSDL and prints the service
// the client would bind to.
func RunDescribe(ctx context.Context, cfg *config.Config, logger *slog.Logger, format string, out io.Writer) error {
	printer, err := NewPrinter(out, format)
	if err != nil {
		return err
	}
	version, err := wsdl.ParseVersion(cfg.SOAPVersion)
	if err != nil {
		return err
	}

	doc, err := description.NewLoader(description.WithLogger(logger)).Load(ctx, cfg.WSDL)
	if err != nil {
		return err
	}
	defs, err := wsdl.Parse(doc)
	if err != nil {
		return err
	}
	svc, err := defs.Service(version)
	if err != nil {
		return err
	}

	summary := ServiceSummary{
		Name:      svc.Name,
		Port:      svc.Port,
		Endpoint:  svc.Endpoint,
		Namespace: svc.Namespace,
		Version:   string(svc.Version),
		Style:     svc.Style,
	}
	for _, name := range svc.OperationNames() {
		op := svc.Operations[name]
		summary.Operations = append(summary.Operations, OperationSummary{
			Name:       op.Name,
			SOAPAction: op.SOAPAction,
			Style:      op.Style,
			Input:      qualified(op.Input),
			Output:     qualified(op.Output),
		})
	}
	return printer.PrintService(summary)
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}
