package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulate(hooks domain.LifecycleHooks, op string, status int, kind domain.FailureKind, err error) {
	ctx := context.Background()
	inv := domain.NewInvocation(op, nil)

	hooks.OnCallStart(ctx, domain.NewCallEvent(domain.EventCallStart, inv))
	if status != 0 {
		ev := domain.NewCallEvent(domain.EventResponse, inv)
		ev.StatusCode = status
		hooks.OnResponse(ctx, ev)
	}
	end := domain.NewCallEvent(domain.EventCallEnd, inv)
	end.Kind = kind
	end.StatusCode = status
	end.Duration = 15 * time.Millisecond
	end.Err = err
	hooks.OnCallEnd(ctx, end)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg, "asyncsoap")
	require.NoError(t, err)
	hooks := m.Hooks()

	simulate(hooks, "AddInteger", 200, domain.KindNone, nil)
	simulate(hooks, "AddInteger", 500, domain.KindFault, &domain.Fault{Code: "soap:Server"})
	simulate(hooks, "LookupCity", 0, domain.KindTransport, errors.New("connection refused"))

	expected := `
# HELP asyncsoap_calls_total Total number of calls by operation and outcome
# TYPE asyncsoap_calls_total counter
asyncsoap_calls_total{operation="AddInteger",outcome="fault"} 1
asyncsoap_calls_total{operation="AddInteger",outcome="success"} 1
asyncsoap_calls_total{operation="LookupCity",outcome="transport"} 1
# HELP asyncsoap_calls_in_flight Number of calls currently in flight
# TYPE asyncsoap_calls_in_flight gauge
asyncsoap_calls_in_flight 0
# HELP asyncsoap_http_status_total HTTP status codes of responses handed to the binding
# TYPE asyncsoap_http_status_total counter
asyncsoap_http_status_total{code="200"} 1
asyncsoap_http_status_total{code="500"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"asyncsoap_calls_total", "asyncsoap_calls_in_flight", "asyncsoap_http_status_total"))

	count, err := testutil.GatherAndCount(reg, "asyncsoap_call_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg, "asyncsoap")
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg, "asyncsoap")
	assert.Error(t, err)
}

func TestComposeHooks(t *testing.T) {
	var order []string
	first := domain.LifecycleHooks{
		OnCallStart: func(context.Context, *domain.CallEvent) { order = append(order, "first.start") },
		OnCallEnd:   func(context.Context, *domain.CallEvent) { order = append(order, "first.end") },
	}
	second := domain.LifecycleHooks{
		OnCallEnd: func(context.Context, *domain.CallEvent) { order = append(order, "second.end") },
	}

	hooks := observability.ComposeHooks(first, second)
	assert.Nil(t, hooks.OnRequestBuilt)
	assert.Nil(t, hooks.OnResponse)

	ev := domain.NewCallEvent(domain.EventCallStart, domain.NewInvocation("Ping", nil))
	hooks.OnCallStart(context.Background(), ev)
	hooks.OnCallEnd(context.Background(), ev)
	assert.Equal(t, []string{"first.start", "first.end", "second.end"}, order)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	hooks := observability.LoggingHooks(logger)
	simulate(hooks, "AddInteger", 200, domain.KindNone, nil)
	assert.Empty(t, buf.String(), "successful calls log at debug")

	simulate(hooks, "AddInteger", 500, domain.KindFault, &domain.Fault{Code: "soap:Server", String: "boom"})
	out := buf.String()
	assert.Contains(t, out, "call_end")
	assert.Contains(t, out, "outcome=fault")
	assert.Contains(t, out, "operation=AddInteger")
}
