package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/asyncsoap/pkg/domain"
)

// LoggingHooks logs every call boundary at debug level and failures at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCallStart: func(ctx context.Context, e *domain.CallEvent) {
			logger.DebugContext(ctx, "call_start", "invocation_id", e.InvocationID, "operation", e.Operation)
		},
		OnRequestBuilt: func(ctx context.Context, e *domain.CallEvent) {
			logger.DebugContext(ctx, "request_built", "invocation_id", e.InvocationID, "url", e.URL)
		},
		OnResponse: func(ctx context.Context, e *domain.CallEvent) {
			logger.DebugContext(ctx, "response", "invocation_id", e.InvocationID, "status", e.StatusCode)
		},
		OnCallEnd: func(ctx context.Context, e *domain.CallEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "call_end",
					"invocation_id", e.InvocationID,
					"operation", e.Operation,
					"outcome", e.Kind.String(),
					"err", e.Err,
				)
				return
			}
			logger.DebugContext(ctx, "call_end",
				"invocation_id", e.InvocationID,
				"operation", e.Operation,
				"outcome", e.Kind.String(),
				"elapsed", e.Duration,
			)
		},
	}
}

// ComposeHooks chains hook sets; each event reaches every set in order.
func ComposeHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	pick := func(get func(domain.LifecycleHooks) func(context.Context, *domain.CallEvent)) func(context.Context, *domain.CallEvent) {
		var fns []func(context.Context, *domain.CallEvent)
		for _, s := range sets {
			if fn := get(s); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, e *domain.CallEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}

	return domain.LifecycleHooks{
		OnCallStart:    pick(func(h domain.LifecycleHooks) func(context.Context, *domain.CallEvent) { return h.OnCallStart }),
		OnRequestBuilt: pick(func(h domain.LifecycleHooks) func(context.Context, *domain.CallEvent) { return h.OnRequestBuilt }),
		OnResponse:     pick(func(h domain.LifecycleHooks) func(context.Context, *domain.CallEvent) { return h.OnResponse }),
		OnCallEnd:      pick(func(h domain.LifecycleHooks) func(context.Context, *domain.CallEvent) { return h.OnCallEnd }),
	}
}
