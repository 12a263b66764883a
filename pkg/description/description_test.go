package description_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/asyncsoap/pkg/adapters/memory"
	"github.com/aretw0/asyncsoap/pkg/description"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `<definitions xmlns="http://schemas.xmlsoap.org/wsdl/" targetNamespace="urn:x"/>`

func TestLoader_HTTP(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/service", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "WSDL=1", r.URL.RawQuery)
		_, _ = w.Write([]byte(doc))
	})
	r.Get("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	l := description.NewLoader(description.WithHTTPClient(srv.Client()))

	got, err := l.Load(context.Background(), srv.URL+"/service?WSDL=1")
	require.NoError(t, err)
	assert.Equal(t, doc, string(got))

	_, err = l.Load(context.Background(), srv.URL+"/gone")
	assert.ErrorContains(t, err, "410")
}

func TestLoader_DataURI(t *testing.T) {
	l := description.NewLoader()
	encoded := base64.StdEncoding.EncodeToString([]byte(doc))

	for _, location := range []string{
		"data://text/plain;base64," + encoded,
		"data:text/xml;base64," + encoded,
		"data:text/xml," + url.PathEscape(doc),
	} {
		got, err := l.Load(context.Background(), location)
		require.NoError(t, err, location)
		assert.Equal(t, doc, string(got))
	}

	_, err := l.Load(context.Background(), "data:text/xml;base64")
	assert.ErrorIs(t, err, description.ErrInvalidDataURI)
}

func TestLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.wsdl")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	l := description.NewLoader()

	got, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, doc, string(got))

	got, err = l.Load(context.Background(), (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String())
	require.NoError(t, err)
	assert.Equal(t, doc, string(got))

	_, err = l.Load(context.Background(), filepath.Join(t.TempDir(), "missing.wsdl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCached_ReadThrough(t *testing.T) {
	origin := memory.NewLoader(map[string]string{"calc.wsdl": doc})
	cache := memory.NewDescriptionCache()
	l := description.Cached(origin, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := l.Load(ctx, "calc.wsdl")
		require.NoError(t, err)
		assert.Equal(t, doc, string(got))
	}
	assert.Equal(t, 1, origin.Loads("calc.wsdl"))

	cached, err := cache.Get(ctx, description.Key("calc.wsdl"))
	require.NoError(t, err)
	assert.Equal(t, doc, string(cached))
}

func TestCached_LoadErrorIsNotCached(t *testing.T) {
	origin := memory.NewLoader(nil)
	l := description.Cached(origin, memory.NewDescriptionCache())

	_, err := l.Load(context.Background(), "missing.wsdl")
	assert.Error(t, err)
	_, err = l.Load(context.Background(), "missing.wsdl")
	assert.Error(t, err)
	assert.Equal(t, 2, origin.Loads("missing.wsdl"))
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (brokenCache) Set(context.Context, string, []byte) error   { return errors.New("down") }
func (brokenCache) Delete(context.Context, string) error        { return errors.New("down") }

func TestCached_BypassesBrokenCache(t *testing.T) {
	origin := memory.NewLoader(map[string]string{"calc.wsdl": doc})
	l := description.Cached(origin, brokenCache{})

	got, err := l.Load(context.Background(), "calc.wsdl")
	require.NoError(t, err)
	assert.Equal(t, doc, string(got))
}

// slowLoader counts loads and takes a while to answer.
type slowLoader struct {
	mu    sync.Mutex
	loads int
}

func (s *slowLoader) Load(ctx context.Context, location string) ([]byte, error) {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	return []byte(doc), nil
}

func TestCached_LockerSerializesColdFetches(t *testing.T) {
	origin := &slowLoader{}
	cache := memory.NewDescriptionCache()
	locker := memory.NewLocker()

	// Two replicas sharing one cache and one locker.
	replicas := []*description.CachedLoader{
		description.Cached(origin, cache, description.WithLocker(locker, time.Second)),
		description.Cached(origin, cache, description.WithLocker(locker, time.Second)),
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(l *description.CachedLoader) {
			defer wg.Done()
			got, err := l.Load(context.Background(), "calc.wsdl")
			assert.NoError(t, err)
			assert.Equal(t, doc, string(got))
		}(replicas[i%2])
	}
	wg.Wait()

	origin.mu.Lock()
	defer origin.mu.Unlock()
	assert.Equal(t, 1, origin.loads)
}

func TestCached_KeyFunc(t *testing.T) {
	cache := memory.NewDescriptionCache()
	l := description.Cached(memory.NewLoader(map[string]string{"calc.wsdl": doc}), cache,
		description.WithKeyFunc(func(location string) string { return "plain:" + location }))

	_, err := l.Load(context.Background(), "calc.wsdl")
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), "plain:calc.wsdl")
	assert.NoError(t, err)
}
