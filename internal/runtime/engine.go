package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/asyncsoap/internal/logging"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/ports"
)

// errNoResponse is reported when a transport claims delivery without a response.
var errNoResponse = errors.New("transport delivered no response")

// Engine sequences one invocation: await binding, build request, send,
// interpret, release. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	bindings  ports.BindingSupplier
	transport ports.Transport
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over a binding supplier and a transport.
func NewEngine(bindings ports.BindingSupplier, transport ports.Transport, opts ...EngineOption) *Engine {
	e := &Engine{
		bindings:  bindings,
		transport: transport,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the invocation to completion and returns the result or the
// single failure that ended it. Collaborator errors are returned unchanged.
// Every body opened along the way is released exactly once before Execute
// returns, whatever the outcome.
func (e *Engine) Execute(ctx context.Context, inv domain.Invocation) (res domain.Result, err error) {
	started := time.Now()
	kind := domain.KindNone
	status := 0
	url := ""

	e.emit(ctx, e.hooks.OnCallStart, domain.NewCallEvent(domain.EventCallStart, inv))
	defer func() {
		// A panicking collaborator still ends the call as a failure; the
		// panic continues to the caller once the event is out.
		r := recover()
		if r != nil {
			kind = domain.KindPanic
			err = fmt.Errorf("%w: %v", domain.ErrPanic, r)
		}

		ev := domain.NewCallEvent(domain.EventCallEnd, inv)
		ev.Kind = kind
		ev.StatusCode = status
		ev.URL = url
		ev.Duration = time.Since(started)
		ev.Err = err
		e.emit(ctx, e.hooks.OnCallEnd, ev)

		if r != nil {
			e.logger.ErrorContext(ctx, "call panicked",
				"invocation_id", inv.ID, "operation", inv.Operation, "err", err, "elapsed", ev.Duration)
			panic(r)
		}
		if err != nil {
			e.logger.InfoContext(ctx, "call failed",
				"invocation_id", inv.ID, "operation", inv.Operation,
				"kind", kind.String(), "status", status, "err", err, "elapsed", ev.Duration)
			return
		}
		e.logger.DebugContext(ctx, "call completed",
			"invocation_id", inv.ID, "operation", inv.Operation, "status", status, "elapsed", ev.Duration)
	}()

	// Suspension point: the binding.
	binding, err := e.bindings.Await(ctx)
	if err != nil {
		kind = classify(domain.KindSupplier, err)
		return domain.Result{}, err
	}

	if err := inv.Validate(); err != nil {
		kind = domain.KindBuild
		return domain.Result{}, &domain.BuildError{Operation: inv.Operation, Err: err}
	}
	req, err := binding.BuildRequest(ctx, inv)
	if err != nil {
		kind = domain.KindBuild
		return domain.Result{}, err
	}
	if req == nil {
		kind = domain.KindBuild
		return domain.Result{}, &domain.BuildError{Operation: inv.Operation, Err: fmt.Errorf("binding returned no request")}
	}
	url = req.URL.String()
	reqBody := guardRequestBody(req)
	defer e.release(ctx, inv, "request", reqBody)

	ev := domain.NewCallEvent(domain.EventRequestBuilt, inv)
	ev.URL = url
	e.emit(ctx, e.hooks.OnRequestBuilt, ev)

	// Nothing has been sent yet; a canceled call must not reach the wire.
	if err := ctx.Err(); err != nil {
		kind = domain.KindCanceled
		return domain.Result{}, err
	}

	// Suspension point: the transport.
	out := e.transport.Send(ctx, req, inv.Options.RequestOptions())

	var resp *http.Response
	switch out.Kind() {
	case ports.OutcomeDelivered:
		resp = out.Response
	case ports.OutcomeFailedWithResponse:
		// An error status may carry a fault or a legitimate payload; only the
		// binding can tell.
		resp = out.Response
		e.logger.DebugContext(ctx, "interpreting error response",
			"invocation_id", inv.ID, "operation", inv.Operation, "cause", out.Err)
	default:
		kind = classify(domain.KindTransport, out.Err)
		if out.Err == nil {
			return domain.Result{}, &domain.TransportError{Op: req.Method, URL: url, Err: errNoResponse}
		}
		return domain.Result{}, out.Err
	}
	if resp == nil {
		kind = domain.KindTransport
		return domain.Result{}, &domain.TransportError{Op: req.Method, URL: url, Err: errNoResponse}
	}

	status = resp.StatusCode
	respBody := guardResponseBody(resp)
	defer e.release(ctx, inv, "response", respBody)

	ev = domain.NewCallEvent(domain.EventResponse, inv)
	ev.URL = url
	ev.StatusCode = status
	e.emit(ctx, e.hooks.OnResponse, ev)

	res, err = binding.InterpretResponse(resp, inv.Operation)
	if err != nil {
		var fault *domain.Fault
		if errors.As(err, &fault) {
			kind = domain.KindFault
		} else {
			kind = domain.KindInterpretation
		}
		return domain.Result{}, err
	}
	return res, nil
}

// release closes a body. A failing close is logged and never replaces the
// outcome of the call.
func (e *Engine) release(ctx context.Context, inv domain.Invocation, what string, body *onceBody) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil {
		e.logger.WarnContext(ctx, "failed to release body",
			"invocation_id", inv.ID, "operation", inv.Operation, "body", what, "err", err)
	}
}

func (e *Engine) emit(ctx context.Context, hook func(context.Context, *domain.CallEvent), ev *domain.CallEvent) {
	if hook != nil {
		hook(ctx, ev)
	}
}

func classify(fallback domain.FailureKind, err error) domain.FailureKind {
	if errors.Is(err, context.Canceled) {
		return domain.KindCanceled
	}
	return fallback
}
