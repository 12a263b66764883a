package supplier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/asyncsoap/internal/logging"
	"github.com/aretw0/asyncsoap/pkg/future"
	"github.com/aretw0/asyncsoap/pkg/ports"
)

// BuildFunc constructs a Binding. It runs at most once per Supplier.
type BuildFunc func(ctx context.Context) (ports.Binding, error)

// Supplier is a lazily-started, single-flight BindingSupplier.
// Concurrent first-time waiters share one construction; the outcome (binding
// or failure) is memoized for every later caller.
type Supplier struct {
	build  BuildFunc
	logger *slog.Logger
	name   string

	mu     sync.Mutex
	result *future.Future[ports.Binding]
}

// Option configures the Supplier.
type Option func(*Supplier)

// WithLogger configures a logger for the Supplier.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supplier) {
		s.logger = logger
	}
}

// WithName labels log lines (e.g. with the WSDL location).
func WithName(name string) Option {
	return func(s *Supplier) {
		s.name = name
	}
}

// New creates a Supplier. Nothing is built until the first Await.
func New(build BuildFunc, opts ...Option) *Supplier {
	s := &Supplier{
		build:  build,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready returns a Supplier already resolved to b.
func Ready(b ports.Binding) *Supplier {
	return &Supplier{logger: logging.NewNop(), result: future.Resolved(b)}
}

// Failed returns a Supplier already failed with err.
func Failed(err error) *Supplier {
	return &Supplier{logger: logging.NewNop(), result: future.Rejected[ports.Binding](err)}
}

// Await returns the Binding, starting construction on first use.
// The construction is detached from ctx cancellation so that one impatient
// caller cannot fail it for everybody; ctx only bounds this caller's wait.
func (s *Supplier) Await(ctx context.Context) (ports.Binding, error) {
	return s.start(ctx).WaitContext(ctx)
}

func (s *Supplier) start(ctx context.Context) *future.Future[ports.Binding] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result != nil {
		return s.result
	}

	s.result = future.Go(context.WithoutCancel(ctx), func(ctx context.Context) (ports.Binding, error) {
		started := time.Now()
		b, err := s.build(ctx)
		if err != nil {
			s.logger.Error("binding construction failed", "name", s.name, "err", err, "elapsed", time.Since(started))
			return nil, err
		}
		s.logger.Debug("binding ready", "name", s.name, "operations", len(b.Operations()), "elapsed", time.Since(started))
		return b, nil
	})
	return s.result
}

// Settled reports whether the binding (or its failure) is already available.
func (s *Supplier) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result != nil && s.result.Settled()
}
