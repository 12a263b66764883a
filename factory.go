package asyncsoap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/asyncsoap/internal/logging"
	soaphttp "github.com/aretw0/asyncsoap/pkg/adapters/http"
	"github.com/aretw0/asyncsoap/pkg/binding"
	"github.com/aretw0/asyncsoap/pkg/description"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/ports"
	"github.com/aretw0/asyncsoap/pkg/supplier"
	"github.com/aretw0/asyncsoap/pkg/wsdl"
)

// Factory option keys.
const (
	// OptionSOAPVersion selects "1.1" (default) or "1.2".
	OptionSOAPVersion = "soap_version"
	// OptionStyle selects "document" or "rpc".
	OptionStyle = "style"
)

// ErrNonWSDLMode is returned when a client without a WSDL lacks the location or uri option.
var ErrNonWSDLMode = errors.New("non-WSDL mode requires the location and uri options")

// ErrInvalidStyle is returned for a style other than document or rpc.
var ErrInvalidStyle = errors.New("invalid binding style")

// Factory creates Clients bound to a WSDL or to an explicit endpoint.
type Factory struct {
	httpClient    *http.Client
	transport     ports.Transport
	loader        ports.DescriptionLoader
	logger        *slog.Logger
	clientOpts    []Option
	transportOpts []soaphttp.TransportOption
	bindingOpts   []binding.Option
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithHTTPClient sets the HTTP client used for calls and WSDL downloads.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *Factory) {
		f.httpClient = c
	}
}

// WithTransport replaces the HTTP transport entirely.
func WithTransport(t ports.Transport) FactoryOption {
	return func(f *Factory) {
		f.transport = t
	}
}

// WithDescriptionLoader replaces the WSDL loader (e.g. a cached loader).
func WithDescriptionLoader(l ports.DescriptionLoader) FactoryOption {
	return func(f *Factory) {
		f.loader = l
	}
}

// WithFactoryLogger sets the logger handed to every component the factory builds.
func WithFactoryLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithClientOptions appends options applied to every created Client.
func WithClientOptions(opts ...Option) FactoryOption {
	return func(f *Factory) {
		f.clientOpts = append(f.clientOpts, opts...)
	}
}

// WithTransportOptions appends options for the default HTTP transport.
func WithTransportOptions(opts ...soaphttp.TransportOption) FactoryOption {
	return func(f *Factory) {
		f.transportOpts = append(f.transportOpts, opts...)
	}
}

// WithBindingOptions appends options for every SOAP binding.
func WithBindingOptions(opts ...binding.Option) FactoryOption {
	return func(f *Factory) {
		f.bindingOpts = append(f.bindingOpts, opts...)
	}
}

// NewFactory creates a Factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.NewNop()
	}
	if f.httpClient == nil {
		f.httpClient = http.DefaultClient
	}
	if f.loader == nil {
		f.loader = description.NewLoader(
			description.WithHTTPClient(f.httpClient),
			description.WithLogger(f.logger),
		)
	}
	return f
}

// Create builds a Client.
//
// With a WSDL location (URL, file path or data URI) the document is fetched
// and parsed lazily on the first call; a failure there fails every call.
// With an empty wsdl the location and uri options must be present and the
// client accepts any operation name.
func (f *Factory) Create(wsdlLocation string, options domain.Options) (*Client, error) {
	if options == nil {
		options = domain.Options{}
	}
	version, err := wsdl.ParseVersion(options.String(OptionSOAPVersion))
	if err != nil {
		return nil, err
	}
	style := options.String(OptionStyle)
	if style != "" && style != wsdl.StyleDocument && style != wsdl.StyleRPC {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStyle, style)
	}

	var bindings ports.BindingSupplier
	if wsdlLocation == "" {
		bindings, err = f.explicit(options, version, style)
		if err != nil {
			return nil, err
		}
	} else {
		bindings = f.described(wsdlLocation, options, version, style)
	}

	opts := append([]Option{WithLogger(f.logger)}, f.clientOpts...)
	return New(f.newTransport(), bindings, opts...), nil
}

func (f *Factory) newTransport() ports.Transport {
	if f.transport != nil {
		return f.transport
	}
	opts := append([]soaphttp.TransportOption{
		soaphttp.WithHTTPClient(f.httpClient),
		soaphttp.WithLogger(f.logger),
	}, f.transportOpts...)
	return soaphttp.NewTransport(opts...)
}

func (f *Factory) explicit(options domain.Options, version wsdl.Version, style string) (ports.BindingSupplier, error) {
	_, hasLocation := options[domain.OptionLocation]
	_, hasURI := options[domain.OptionURI]
	if !hasLocation || !hasURI {
		return nil, ErrNonWSDLMode
	}
	if style == "" {
		style = wsdl.StyleRPC
	}
	svc := wsdl.Service{
		Endpoint:  options.String(domain.OptionLocation),
		Namespace: options.String(domain.OptionURI),
		Version:   version,
		Style:     style,
	}
	return supplier.Ready(binding.New(svc, f.bindingOpts...)), nil
}

func (f *Factory) described(location string, options domain.Options, version wsdl.Version, style string) ports.BindingSupplier {
	build := func(ctx context.Context) (ports.Binding, error) {
		doc, err := f.loader.Load(ctx, location)
		if err != nil {
			return nil, err
		}
		defs, err := wsdl.Parse(doc)
		if err != nil {
			return nil, err
		}
		svc, err := defs.Service(version)
		if err != nil {
			return nil, err
		}
		if loc := options.String(domain.OptionLocation); loc != "" {
			svc.Endpoint = loc
		}
		uri := options.String(domain.OptionURI)
		if uri != "" {
			svc.Namespace = uri
		}
		if style != "" {
			svc.Style = style
		}
		for name, op := range svc.Operations {
			if uri != "" {
				op.Input.Space, op.Output.Space = uri, uri
			}
			if style != "" {
				op.Style = style
			}
			svc.Operations[name] = op
		}
		return binding.New(svc, f.bindingOpts...), nil
	}
	return supplier.New(build,
		supplier.WithLogger(f.logger),
		supplier.WithName(description.RedactLocation(location)),
	)
}
