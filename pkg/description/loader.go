package description

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aretw0/asyncsoap/internal/logging"
)

// MaxDocumentSize caps the size of a fetched document.
const MaxDocumentSize int64 = 10 << 20

// ErrInvalidDataURI is returned for data URIs without a payload separator.
var ErrInvalidDataURI = errors.New("invalid data URI")

type options struct {
	client  *http.Client
	logger  *slog.Logger
	locker  lockerConfig
	keyFunc func(location string) string
}

// Option configures a Loader or a CachedLoader.
type Option func(*options)

// WithHTTPClient sets the client used for http and https locations.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		client:  http.DefaultClient,
		logger:  logging.NewNop(),
		keyFunc: Key,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Loader implements ports.DescriptionLoader. It understands http and https
// URLs, data URIs, file URLs and plain file paths.
type Loader struct {
	client *http.Client
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	o := newOptions(opts)
	return &Loader{client: o.client, logger: o.logger}
}

// Load returns the raw document found at location.
func (l *Loader) Load(ctx context.Context, location string) ([]byte, error) {
	started := time.Now()
	var (
		doc []byte
		err error
	)
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		doc, err = l.fetch(ctx, location)
	case strings.HasPrefix(location, "data:"):
		doc, err = decodeDataURI(location)
	case strings.HasPrefix(location, "file://"):
		u, perr := url.Parse(location)
		if perr != nil {
			return nil, fmt.Errorf("invalid file URL %q: %w", location, perr)
		}
		doc, err = os.ReadFile(u.Path)
	default:
		doc, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load description %s: %w", RedactLocation(location), err)
	}

	l.logger.DebugContext(ctx, "description loaded",
		"location", RedactLocation(location), "bytes", len(doc), "elapsed", time.Since(started))
	return doc, nil
}

func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	doc, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(doc)) > MaxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
	}
	return doc, nil
}

// decodeDataURI accepts data:[<mediatype>][;base64],<data> and the
// data://<mediatype>;base64,<data> spelling.
func decodeDataURI(location string) ([]byte, error) {
	rest := strings.TrimPrefix(location, "data:")
	rest = strings.TrimPrefix(rest, "//")

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrInvalidDataURI
	}
	if strings.HasSuffix(meta, ";base64") {
		doc, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		return doc, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return []byte(s), nil
}

// RedactLocation shortens data URIs and hides URL credentials for logs and errors.
func RedactLocation(location string) string {
	if strings.HasPrefix(location, "data:") {
		if meta, _, ok := strings.Cut(location, ","); ok {
			return meta + ",..."
		}
	}
	if u, err := url.Parse(location); err == nil && u.User != nil {
		return u.Redacted()
	}
	return location
}
