package binding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/wsdl"
)

// DefaultMaxResponseSize caps how much of a response body is read.
const DefaultMaxResponseSize int64 = 10 << 20

var (
	errNoEndpoint    = errors.New("no endpoint location")
	errEmptyBody     = errors.New("empty response body")
	errBodyTooLarge  = errors.New("response body exceeds size limit")
	errNotAnEnvelope = errors.New("response is not a SOAP envelope")
	errNoBodyElement = errors.New("envelope has no Body")
)

// SOAP implements ports.Binding for SOAP 1.1 and 1.2 over HTTP.
// It is immutable after construction and safe for concurrent use.
type SOAP struct {
	service         wsdl.Service
	maxResponseSize int64
}

// Option configures the SOAP binding.
type Option func(*SOAP)

// WithMaxResponseSize overrides DefaultMaxResponseSize.
func WithMaxResponseSize(n int64) Option {
	return func(b *SOAP) {
		if n > 0 {
			b.maxResponseSize = n
		}
	}
}

// New creates a binding for svc. A service without operations accepts any
// operation name and derives wrapper elements from the service namespace.
func New(svc wsdl.Service, opts ...Option) *SOAP {
	if svc.Version == "" {
		svc.Version = wsdl.SOAP11
	}
	if svc.Style == "" {
		svc.Style = wsdl.StyleDocument
	}
	b := &SOAP{
		service:         svc,
		maxResponseSize: DefaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Service returns the service the binding targets.
func (b *SOAP) Service() wsdl.Service {
	return b.service
}

// Operations lists the known operation names, sorted.
func (b *SOAP) Operations() []string {
	names := make([]string, 0, len(b.service.Operations))
	for name := range b.service.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *SOAP) operation(name string) (wsdl.Operation, error) {
	if op, ok := b.service.Operations[name]; ok {
		return op, nil
	}
	if len(b.service.Operations) > 0 {
		return wsdl.Operation{}, fmt.Errorf("%w: %s", domain.ErrUnknownOperation, name)
	}
	ns := b.service.Namespace
	op := wsdl.Operation{
		Name:  name,
		Style: b.service.Style,
	}
	op.Input.Space, op.Input.Local = ns, name
	op.Output.Space, op.Output.Local = ns, name+"Response"
	if ns != "" {
		op.SOAPAction = ns + "#" + name
	}
	return op, nil
}

// BuildRequest renders the invocation into a POST request carrying the envelope.
func (b *SOAP) BuildRequest(ctx context.Context, inv domain.Invocation) (*http.Request, error) {
	fail := func(err error) error {
		return &domain.BuildError{Operation: inv.Operation, Err: err}
	}

	op, err := b.operation(inv.Operation)
	if err != nil {
		return nil, fail(err)
	}

	endpoint := b.service.Endpoint
	if loc := inv.Options.String(domain.OptionLocation); loc != "" {
		endpoint = loc
	}
	if uri := inv.Options.String(domain.OptionURI); uri != "" {
		op.Input.Space = uri
		op.Output.Space = uri
	}
	if action := inv.Options.String(domain.OptionSOAPAction); action != "" {
		op.SOAPAction = action
	}
	if endpoint == "" {
		return nil, fail(errNoEndpoint)
	}

	body, err := encodeEnvelope(b.service.Version, op, inv.InputHeaders, inv.Arguments)
	if err != nil {
		return nil, fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fail(err)
	}
	switch b.service.Version {
	case wsdl.SOAP12:
		ct := "application/soap+xml; charset=utf-8"
		if op.SOAPAction != "" {
			ct += fmt.Sprintf("; action=%q", op.SOAPAction)
		}
		req.Header.Set("Content-Type", ct)
	default:
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")
		req.Header.Set("SOAPAction", fmt.Sprintf("%q", op.SOAPAction))
	}
	return req, nil
}

// InterpretResponse decodes the envelope in resp. It does not close resp.Body.
func (b *SOAP) InterpretResponse(resp *http.Response, operation string) (domain.Result, error) {
	fail := func(err error) error {
		return &domain.DecodeError{Operation: operation, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.Body == nil {
		return domain.Result{}, fail(errEmptyBody)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxResponseSize+1))
	if err != nil {
		return domain.Result{}, fail(fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > b.maxResponseSize {
		return domain.Result{}, fail(errBodyTooLarge)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Result{}, fail(errEmptyBody)
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		return domain.Result{}, fail(err)
	}
	if env.fault != nil {
		return domain.Result{}, env.fault
	}
	return domain.Result{Value: env.value, Headers: env.headers}, nil
}
