package domain

import (
	"github.com/google/uuid"
)

// Reserved option keys.
const (
	// OptionRequestOptions holds transport-specific options forwarded verbatim to the Transport.
	OptionRequestOptions = "request_options"
	// OptionLocation overrides the endpoint URL.
	OptionLocation = "location"
	// OptionURI overrides the target namespace.
	OptionURI = "uri"
	// OptionSOAPAction overrides the SOAPAction of the operation.
	OptionSOAPAction = "soap_action"
)

// Options are per-call options. Keys the binding or transport do not recognize are ignored.
type Options map[string]any

// RequestOptions returns the transport options, or an empty map when absent.
func (o Options) RequestOptions() map[string]any {
	if v, ok := o[OptionRequestOptions].(map[string]any); ok && v != nil {
		return v
	}
	return map[string]any{}
}

// String returns a string option or "".
func (o Options) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Header is a SOAP input header.
type Header struct {
	Namespace      string `json:"namespace" yaml:"namespace"`
	Name           string `json:"name" yaml:"name"`
	Value          any    `json:"value" yaml:"value"`
	MustUnderstand bool   `json:"must_understand,omitempty" yaml:"must_understand"`
}

// Invocation is one logical call to a named operation.
type Invocation struct {
	ID           string
	Operation    string
	Arguments    []any
	Options      Options
	InputHeaders []Header
}

// NewInvocation creates an invocation with a fresh correlation ID.
func NewInvocation(operation string, args []any) Invocation {
	return Invocation{
		ID:        uuid.NewString(),
		Operation: operation,
		Arguments: args,
		Options:   Options{},
	}
}

// Validate checks the invariants the orchestrator relies on.
func (i Invocation) Validate() error {
	if i.Operation == "" {
		return ErrEmptyOperation
	}
	return nil
}
