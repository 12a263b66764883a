package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/asyncsoap/internal/logging"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// OperationsURI is the resource listing the callable operations.
const OperationsURI = "asyncsoap://operations"

// CallResponse is the structured content of a successful call.
type CallResponse struct {
	Operation string         `json:"operation" jsonschema_description:"The operation that was called"`
	Result    any            `json:"result" jsonschema_description:"The interpreted response value"`
	Headers   map[string]any `json:"headers,omitempty" jsonschema_description:"Output headers of the response"`
}

// Server exposes a SOAP client as an MCP server: one tool per operation,
// plus a generic call tool and an operation listing.
type Server struct {
	client    ports.Caller
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for call failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an MCP server for client. Operation tools are
// registered once the client's operations are known.
func NewServer(ctx context.Context, client ports.Caller, version string, opts ...Option) (*Server, error) {
	s := &Server{
		client:    client,
		mcpServer: server.NewMCPServer("asyncsoap-mcp", version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	ops, err := client.Operations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	s.registerTools(ops)
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools(ops []string) {
	// TOOL: list_operations
	s.mcpServer.AddTool(mcp.NewTool("list_operations",
		mcp.WithDescription("List the operations the SOAP service exposes. An empty list means any name is accepted."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ops, err := s.client.Operations(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list operations failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ops)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: call
	s.mcpServer.AddTool(mcp.NewTool("call",
		mcp.WithDescription("Call a SOAP operation by name."),
		mcp.WithString("operation", mcp.Required(), mcp.Description("Operation name")),
		mcp.WithObject("arguments", mcp.Description("Request body parts, keyed by element name")),
		mcp.WithObject("options", mcp.Description("Call options (location, uri, soap_action, request_options)")),
		mcp.WithOutputSchema[CallResponse](),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		op, _ := args["operation"].(string)
		if op == "" {
			return mcp.NewToolResultError("operation is required"), nil
		}
		return s.dispatch(ctx, op, args), nil
	})

	// TOOL: one per operation
	for _, op := range ops {
		op := op
		s.mcpServer.AddTool(mcp.NewTool(op,
			mcp.WithDescription(fmt.Sprintf("Call the %s SOAP operation.", op)),
			mcp.WithObject("arguments", mcp.Description("Request body parts, keyed by element name")),
			mcp.WithObject("options", mcp.Description("Call options (location, uri, soap_action, request_options)")),
			mcp.WithOutputSchema[CallResponse](),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.dispatch(ctx, op, request.GetArguments()), nil
		})
	}
}

// dispatch runs the call. Failures are reported as tool errors so the model
// can read them; faults keep their code and string.
func (s *Server) dispatch(ctx context.Context, op string, args map[string]any) *mcp.CallToolResult {
	var callArgs []any
	if a, ok := args["arguments"].(map[string]any); ok {
		callArgs = []any{a}
	}
	options := domain.Options{}
	if o, ok := args["options"].(map[string]any); ok {
		for k, v := range o {
			options[k] = v
		}
	}

	res, err := s.client.Dispatch(ctx, op, callArgs, options)
	if err != nil {
		s.logger.WarnContext(ctx, "MCP call failed", "operation", op, "err", err)
		var fault *domain.Fault
		if errors.As(err, &fault) {
			jsonBytes, _ := json.Marshal(map[string]any{"fault": fault})
			return mcp.NewToolResultError(string(jsonBytes))
		}
		return mcp.NewToolResultError(fmt.Sprintf("call failed: %v", err))
	}

	out := CallResponse{Operation: op, Result: res.Value, Headers: res.Headers}
	jsonBytes, _ := json.Marshal(out)
	return mcp.NewToolResultStructured(out, string(jsonBytes))
}

func (s *Server) registerResources() {
	// EXPOSE: asyncsoap://operations
	s.mcpServer.AddResource(mcp.NewResource(OperationsURI, "Service Operations",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ops, err := s.client.Operations(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list operations: %w", err)
		}
		jsonBytes, _ := json.Marshal(ops)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      OperationsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
