package supplier_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/ports"
	"github.com/aretw0/asyncsoap/pkg/supplier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBinding struct{ name string }

func (b *stubBinding) BuildRequest(ctx context.Context, inv domain.Invocation) (*http.Request, error) {
	return nil, errors.New("not used")
}

func (b *stubBinding) InterpretResponse(resp *http.Response, operation string) (domain.Result, error) {
	return domain.Result{}, errors.New("not used")
}

func (b *stubBinding) Operations() []string { return nil }

func TestSupplier_Lazy(t *testing.T) {
	var calls atomic.Int32
	s := supplier.New(func(ctx context.Context) (ports.Binding, error) {
		calls.Add(1)
		return &stubBinding{}, nil
	})

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load(), "nothing should be built before Await")
	assert.False(t, s.Settled())

	_, err := s.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, s.Settled())
}

func TestSupplier_SingleFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	want := &stubBinding{name: "shared"}

	s := supplier.New(func(ctx context.Context) (ports.Binding, error) {
		calls.Add(1)
		<-release
		return want, nil
	})

	const waiters = 20
	var wg sync.WaitGroup
	got := make([]ports.Binding, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := s.Await(context.Background())
			assert.NoError(t, err)
			got[i] = b
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "build must run exactly once")
	for _, b := range got {
		assert.Same(t, want, b)
	}
}

func TestSupplier_FailureIsMemoized(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("wsdl unreachable")
	s := supplier.New(func(ctx context.Context) (ports.Binding, error) {
		calls.Add(1)
		return nil, boom
	})

	for i := 0; i < 3; i++ {
		_, err := s.Await(context.Background())
		assert.Same(t, boom, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestSupplier_CanceledWaiterDoesNotPoisonOthers(t *testing.T) {
	release := make(chan struct{})
	s := supplier.New(func(ctx context.Context) (ports.Binding, error) {
		select {
		case <-release:
			return &stubBinding{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Await(ctx)
		done <- err
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	b, err := s.Await(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestReadyAndFailed(t *testing.T) {
	b := &stubBinding{}
	got, err := supplier.Ready(b).Await(context.Background())
	require.NoError(t, err)
	assert.Same(t, b, got)

	boom := errors.New("boom")
	_, err = supplier.Failed(boom).Await(context.Background())
	assert.Same(t, boom, err)
}
