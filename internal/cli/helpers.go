package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/aretw0/asyncsoap/internal/logging"
	"github.com/aretw0/asyncsoap/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger configures the application logger. It writes to Stderr so that
// Stdout only carries results.
func NewLogger(level string) *slog.Logger {
	return logging.New(logging.ParseLevel(level))
}

// ParseArguments turns the --args JSON into call arguments: an object is a
// single body argument, an array is positional, empty means none.
func ParseArguments(raw string) ([]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("error parsing --args JSON: %w", err)
	}
	switch t := v.(type) {
	case []any:
		return t, nil
	case nil:
		return nil, nil
	default:
		return []any{t}, nil
	}
}

// ParseOptions parses the --options JSON object.
func ParseOptions(raw string) (domain.Options, error) {
	options := domain.Options{}
	if strings.TrimSpace(raw) == "" {
		return options, nil
	}
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil, fmt.Errorf("error parsing --options JSON: %w", err)
	}
	return options, nil
}

// ParseHeaders turns ns|name=value flags into input headers.
func ParseHeaders(flags []string) ([]domain.Header, error) {
	headers := make([]domain.Header, 0, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid header %q: expected [namespace|]name=value", f)
		}
		h := domain.Header{Name: key, Value: value}
		if ns, name, ok := strings.Cut(key, "|"); ok {
			h.Namespace, h.Name = ns, name
		}
		if h.Name == "" {
			return nil, fmt.Errorf("invalid header %q: empty name", f)
		}
		headers = append(headers, h)
	}
	return headers, nil
}
