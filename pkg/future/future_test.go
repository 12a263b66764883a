package future_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/future"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_Resolves(t *testing.T) {
	f := future.Go(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	v, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, f.Settled())
}

func TestGo_Rejects(t *testing.T) {
	boom := errors.New("boom")
	f := future.Go(context.Background(), func(ctx context.Context) (string, error) {
		return "", boom
	})

	_, err := f.Wait()
	assert.ErrorIs(t, err, boom)
}

func TestGo_DoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	f := future.Go(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	assert.False(t, f.Settled())
	close(release)
	<-f.Done()
	assert.True(t, f.Settled())
}

func TestGo_RecoversPanic(t *testing.T) {
	f := future.Go(context.Background(), func(ctx context.Context) (int, error) {
		panic("kaboom")
	})

	_, err := f.Wait()
	assert.ErrorIs(t, err, domain.ErrPanic)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestCancel_PropagatesToComputation(t *testing.T) {
	started := make(chan struct{})
	f := future.Go(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	<-started
	f.Cancel()
	_, err := f.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitContext_GivesUpWithoutCanceling(t *testing.T) {
	release := make(chan struct{})
	f := future.Go(context.Background(), func(ctx context.Context) (int, error) {
		select {
		case <-release:
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.WaitContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	v, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestResolvedAndRejected(t *testing.T) {
	v, err := future.Resolved("ok").Wait()
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	boom := errors.New("wsdl unreachable")
	_, err = future.Rejected[int](boom).Wait()
	assert.Same(t, boom, err)
}
