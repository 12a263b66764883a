package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/asyncsoap/internal/logging"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBody caps gateway request bodies.
const maxRequestBody = 1 << 20

// CallRequest is the body of POST /operations/{operation}.
type CallRequest struct {
	Arguments []any          `json:"arguments"`
	Options   domain.Options `json:"options,omitempty"`
}

// Gateway exposes a client as a JSON API.
type Gateway struct {
	client  ports.Caller
	metrics prometheus.Gatherer
	version string
	logger  *slog.Logger
}

// GatewayOption configures the Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the structured logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics serves GET /metrics from gatherer.
func WithMetrics(gatherer prometheus.Gatherer) GatewayOption {
	return func(g *Gateway) {
		g.metrics = gatherer
	}
}

// WithVersion sets the version reported by /info and the OpenAPI document.
func WithVersion(version string) GatewayOption {
	return func(g *Gateway) {
		g.version = version
	}
}

// NewHandler creates a new HTTP handler for the client.
func NewHandler(client ports.Caller, opts ...GatewayOption) http.Handler {
	g := &Gateway{
		client:  client,
		version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}

	r := chi.NewRouter()
	r.Get("/health", g.GetHealth)
	r.Get("/info", g.GetInfo)
	r.Get("/operations", g.ListOperations)
	r.Post("/operations/{operation}", g.CallOperation)
	r.Get("/openapi.json", g.GetOpenAPI)
	if g.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g.metrics, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (g *Gateway) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (g *Gateway) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "asyncsoap-gateway",
		"version": g.version,
	})
}

// ListOperations handles the GET /operations request.
func (g *Gateway) ListOperations(w http.ResponseWriter, r *http.Request) {
	ops, err := g.client.Operations(r.Context())
	if err != nil {
		g.fail(w, r, "", err)
		return
	}
	if ops == nil {
		ops = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": ops})
}

// CallOperation handles the POST /operations/{operation} request.
func (g *Gateway) CallOperation(w http.ResponseWriter, r *http.Request) {
	operation := chi.URLParam(r, "operation")

	var body CallRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		g.logger.WarnContext(r.Context(), "CallOperation: invalid request body", "operation", operation, "err", err)
		return
	}

	res, err := g.client.Dispatch(r.Context(), operation, body.Arguments, body.Options)
	if err != nil {
		g.fail(w, r, operation, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetOpenAPI handles the GET /openapi.json request.
func (g *Gateway) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	ops, err := g.client.Operations(r.Context())
	if err != nil {
		g.fail(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, OpenAPIDocument(ops, g.version))
}

func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := StatusFor(err)
	g.logger.InfoContext(r.Context(), "gateway call failed", "operation", operation, "status", status, "err", err)

	var fault *domain.Fault
	if errors.As(err, &fault) {
		writeJSON(w, status, map[string]any{"fault": fault})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// StatusFor maps a call failure to the gateway status code.
func StatusFor(err error) int {
	var (
		fault     *domain.Fault
		buildErr  *domain.BuildError
		decodeErr *domain.DecodeError
		transErr  *domain.TransportError
	)
	switch {
	case errors.As(err, &fault):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrUnknownOperation):
		return http.StatusNotFound
	case errors.As(err, &buildErr), errors.Is(err, domain.ErrEmptyOperation):
		return http.StatusBadRequest
	case errors.As(err, &transErr):
		if transErr.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.As(err, &decodeErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}

// OpenAPIDocument describes the gateway routes for ops.
func OpenAPIDocument(ops []string, version string) *openapi3.T {
	resultSchema := openapi3.NewObjectSchema().
		WithProperty("result", openapi3.NewSchema()).
		WithProperty("headers", openapi3.NewObjectSchema())
	requestSchema := openapi3.NewObjectSchema().
		WithProperty("arguments", openapi3.NewArraySchema().WithItems(openapi3.NewSchema())).
		WithProperty("options", openapi3.NewObjectSchema())
	errorSchema := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("fault", openapi3.NewObjectSchema())

	paths := openapi3.NewPaths()
	paths.Set("/health", &openapi3.PathItem{Get: &openapi3.Operation{
		OperationID: "getHealth",
		Responses: openapi3.NewResponses(openapi3.WithStatus(http.StatusOK,
			&openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Service is up")})),
	}})
	paths.Set("/operations", &openapi3.PathItem{Get: &openapi3.Operation{
		OperationID: "listOperations",
		Responses: openapi3.NewResponses(openapi3.WithStatus(http.StatusOK,
			&openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Known operations").
				WithJSONSchema(openapi3.NewObjectSchema().
					WithProperty("operations", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())))})),
	}})

	call := func(id, summary string) *openapi3.Operation {
		return &openapi3.Operation{
			OperationID: id,
			Summary:     summary,
			RequestBody: &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithJSONSchema(requestSchema)},
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(http.StatusOK,
					&openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Call result").WithJSONSchema(resultSchema)}),
				openapi3.WithStatus(http.StatusBadGateway,
					&openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Fault or remote failure").WithJSONSchema(errorSchema)}),
			),
		}
	}
	for _, op := range ops {
		paths.Set("/operations/"+op, &openapi3.PathItem{Post: call("call"+op, fmt.Sprintf("Call the %s operation", op))})
	}
	// Without a service description any operation name is accepted.
	if len(ops) == 0 {
		generic := call("callOperation", "Call an operation by name")
		generic.Parameters = openapi3.Parameters{
			{Value: openapi3.NewPathParameter("operation").WithSchema(openapi3.NewStringSchema())},
		}
		paths.Set("/operations/{operation}", &openapi3.PathItem{Post: generic})
	}

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "asyncsoap gateway",
			Version: version,
		},
		Paths: paths,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
