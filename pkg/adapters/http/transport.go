package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/aretw0/asyncsoap/internal/logging"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/ports"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/time/rate"
)

// RequestOptions are the per-call options understood by the Transport.
// Keys follow the Guzzle request options: timeout, headers, auth, http_errors.
type RequestOptions struct {
	Timeout    time.Duration     `mapstructure:"timeout"`
	Headers    map[string]string `mapstructure:"headers"`
	Auth       []string          `mapstructure:"auth"`
	HTTPErrors *bool             `mapstructure:"http_errors"`
}

// DecodeRequestOptions decodes raw options. Unknown keys are ignored.
// Timeouts accept a duration string ("5s") or a number of seconds.
func DecodeRequestOptions(raw map[string]any) (RequestOptions, error) {
	var opts RequestOptions
	if len(raw) == 0 {
		return opts, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return opts, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return opts, fmt.Errorf("invalid request options: %w", err)
	}
	return opts, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func secondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case float32:
		return time.Duration(float64(v) * float64(time.Second)), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return time.Duration(f * float64(time.Second)), nil
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(f * float64(time.Second)), nil
		}
	}
	return data, nil
}

// Transport implements ports.Transport over an *http.Client.
type Transport struct {
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

// TransportOption configures the Transport.
type TransportOption func(*Transport)

// WithHTTPClient sets the underlying client (default: http.DefaultClient).
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithRateLimit caps outgoing requests to rps with the given burst.
// Waiting for a slot honours the call context.
func WithRateLimit(rps float64, burst int) TransportOption {
	return func(t *Transport) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the timeout used when a call does not pass one.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		t.timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransport creates an HTTP transport.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		client: http.DefaultClient,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send implements ports.Transport.
func (t *Transport) Send(ctx context.Context, req *http.Request, options map[string]any) ports.Outcome {
	fail := func(err error) ports.Outcome {
		return ports.FailedWithoutResponse(&domain.TransportError{Op: req.Method, URL: req.URL.String(), Err: err})
	}

	opts, err := DecodeRequestOptions(options)
	if err != nil {
		return fail(err)
	}

	timeout := t.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	// Time spent queued behind the limiter counts against the timeout.
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			cancel()
			return fail(err)
		}
	}

	out := req.Clone(ctx)
	for k, v := range opts.Headers {
		out.Header.Set(k, v)
	}
	if len(opts.Auth) > 0 {
		if err := applyAuth(out, opts.Auth); err != nil {
			cancel()
			return fail(err)
		}
	}

	started := time.Now()
	resp, err := t.client.Do(out)
	if err != nil {
		cancel()
		t.logger.DebugContext(ctx, "http exchange failed", "url", out.URL.String(), "err", err)
		return fail(err)
	}
	// The timeout covers reading the body, so it ends when the body is released.
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}

	t.logger.DebugContext(ctx, "http exchange",
		"url", out.URL.String(), "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode >= http.StatusBadRequest && (opts.HTTPErrors == nil || *opts.HTTPErrors) {
		return ports.FailedWithResponse(resp, &domain.StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}
	return ports.Delivered(resp)
}

func applyAuth(req *http.Request, auth []string) error {
	if len(auth) < 2 {
		return fmt.Errorf("auth needs a username and a password")
	}
	if len(auth) > 2 && auth[2] != "" && auth[2] != "basic" {
		return fmt.Errorf("unsupported auth scheme %q", auth[2])
	}
	req.SetBasicAuth(auth[0], auth[1])
	return nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
