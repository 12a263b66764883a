package asyncsoap

import (
	"context"
	"log/slog"

	"github.com/aretw0/asyncsoap/internal/logging"
	"github.com/aretw0/asyncsoap/internal/runtime"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/future"
	"github.com/aretw0/asyncsoap/pkg/ports"
)

// Client is the high-level entry point for issuing remote calls.
// It wraps the internal runtime and exposes the three call surfaces:
// CallAsync, Call and Invoke. A Client is safe for concurrent use.
type Client struct {
	runtime   *runtime.Engine
	bindings  ports.BindingSupplier
	transport ports.Transport
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

var _ ports.Caller = (*Client)(nil)

// Option defines a functional option for configuring the Client.
type Option func(*Client)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Client) {
		c.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client that sends requests through transport and renders
// them with the binding yielded by bindings.
func New(transport ports.Transport, bindings ports.BindingSupplier, opts ...Option) *Client {
	c := &Client{
		bindings:  bindings,
		transport: transport,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}

	c.runtime = runtime.NewEngine(bindings, transport,
		runtime.WithLifecycleHooks(c.hooks),
		runtime.WithLogger(c.logger),
	)
	return c
}

// CallOption tunes a single call.
type CallOption func(*domain.Invocation)

// WithOptions merges binding options (location, uri, soap_action, request_options).
func WithOptions(options domain.Options) CallOption {
	return func(inv *domain.Invocation) {
		for k, v := range options {
			inv.Options[k] = v
		}
	}
}

// WithRequestOptions sets the options handed verbatim to the transport.
func WithRequestOptions(options map[string]any) CallOption {
	return func(inv *domain.Invocation) {
		inv.Options[domain.OptionRequestOptions] = options
	}
}

// WithInputHeaders appends headers to the outgoing envelope.
func WithInputHeaders(headers ...domain.Header) CallOption {
	return func(inv *domain.Invocation) {
		inv.InputHeaders = append(inv.InputHeaders, headers...)
	}
}

// CallAsync starts the operation and returns immediately with a Future for
// its result. The call runs on its own goroutine; canceling ctx before the
// request is sent prevents the send.
func (c *Client) CallAsync(ctx context.Context, operation string, args []any, opts ...CallOption) *future.Future[domain.Result] {
	inv := domain.NewInvocation(operation, args)
	for _, opt := range opts {
		opt(&inv)
	}

	return future.Go(ctx, func(ctx context.Context) (domain.Result, error) {
		return c.runtime.Execute(ctx, inv)
	})
}

// Call runs the operation and blocks until it settles.
func (c *Client) Call(ctx context.Context, operation string, args []any, opts ...CallOption) (domain.Result, error) {
	return c.CallAsync(ctx, operation, args, opts...).Wait()
}

// Invoke dispatches an operation by name with default options and headers.
// It never blocks; call Wait on the returned Future for the result.
func (c *Client) Invoke(ctx context.Context, operation string, args ...any) *future.Future[domain.Result] {
	return c.CallAsync(ctx, operation, args)
}

// Dispatch runs the operation with options and blocks until it settles.
func (c *Client) Dispatch(ctx context.Context, operation string, args []any, options domain.Options) (domain.Result, error) {
	return c.Call(ctx, operation, args, WithOptions(options))
}

// OperationFunc is a pre-bound operation, suitable for typed wrappers.
type OperationFunc func(ctx context.Context, args ...any) *future.Future[domain.Result]

// Operation returns a function that invokes name.
func (c *Client) Operation(name string) OperationFunc {
	return func(ctx context.Context, args ...any) *future.Future[domain.Result] {
		return c.Invoke(ctx, name, args...)
	}
}

// Operations lists the operations known to the resolved binding.
// An empty list means the binding accepts any operation name.
func (c *Client) Operations(ctx context.Context) ([]string, error) {
	b, err := c.bindings.Await(ctx)
	if err != nil {
		return nil, err
	}
	return b.Operations(), nil
}

// Transport returns the underlying transport.
func (c *Client) Transport() ports.Transport {
	return c.transport
}
