package ports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TransportFactory builds a Transport whose requests are served by handler and
// returns the base URL requests should target.
type TransportFactory func(t *testing.T, handler http.Handler) (Transport, string)

// RunTransportContract runs a suite of tests to verify that a Transport implementation
// reports outcomes the way the engine expects.
func RunTransportContract(t *testing.T, newTransport TransportFactory) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/xml")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
		case "/fail":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("fault body"))
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	newRequest := func(t *testing.T, url string) *http.Request {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte("<ping/>")))
		require.NoError(t, err)
		return req
	}

	t.Run("Delivered", func(t *testing.T) {
		tr, base := newTransport(t, handler)
		out := tr.Send(context.Background(), newRequest(t, base+"/ok"), nil)
		require.Equal(t, OutcomeDelivered, out.Kind(), "unexpected error: %v", out.Err)
		defer out.Response.Body.Close()

		body, err := io.ReadAll(out.Response.Body)
		require.NoError(t, err)
		assert.Equal(t, "<ping/>", string(body))
		assert.Equal(t, http.StatusOK, out.Response.StatusCode)
	})

	t.Run("Error status carries response", func(t *testing.T) {
		tr, base := newTransport(t, handler)
		out := tr.Send(context.Background(), newRequest(t, base+"/fail"), map[string]any{})
		require.Equal(t, OutcomeFailedWithResponse, out.Kind())
		defer out.Response.Body.Close()

		var statusErr *domain.StatusError
		require.True(t, errors.As(out.Err, &statusErr), "cause should be *domain.StatusError, got %T", out.Err)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

		body, err := io.ReadAll(out.Response.Body)
		require.NoError(t, err)
		assert.Equal(t, "fault body", string(body))
	})

	t.Run("Canceled context yields no response", func(t *testing.T) {
		tr, base := newTransport(t, handler)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out := tr.Send(ctx, newRequest(t, base+"/slow"), nil)
		require.Equal(t, OutcomeFailedWithoutResponse, out.Kind())
		assert.Nil(t, out.Response)
		assert.ErrorIs(t, out.Err, context.Canceled)
	})
}

// RunDescriptionCacheContract runs a suite of tests to verify that a DescriptionCache
// implementation adheres to the defined interface contract.
func RunDescriptionCacheContract(t *testing.T, cache DescriptionCache) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		doc := []byte("<definitions/>")
		require.NoError(t, cache.Set(ctx, key, doc), "Set should not return error")

		got, err := cache.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, doc, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte("v1")))
		require.NoError(t, cache.Set(ctx, key, []byte("v2")))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, err := cache.Get(ctx, "missing-"+key)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte("doc")))
		require.NoError(t, cache.Delete(ctx, key), "Delete should not return error")

		_, err := cache.Get(ctx, key)
		assert.ErrorIs(t, err, ErrCacheMiss, "Get after Delete should return ErrCacheMiss")
	})
}
