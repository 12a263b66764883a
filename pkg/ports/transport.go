package ports

import (
	"context"
	"net/http"
)

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

const (
	// OutcomeDelivered is a successful exchange.
	OutcomeDelivered OutcomeKind = iota
	// OutcomeFailedWithResponse is a failure (e.g. HTTP 500) that still carries a response.
	OutcomeFailedWithResponse
	// OutcomeFailedWithoutResponse is a failure with nothing to interpret.
	OutcomeFailedWithoutResponse
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeFailedWithResponse:
		return "failed_with_response"
	case OutcomeFailedWithoutResponse:
		return "failed_without_response"
	default:
		return "unknown"
	}
}

// Outcome is the result of a Transport send.
type Outcome struct {
	kind     OutcomeKind
	Response *http.Response
	Err      error
}

// Delivered wraps a successful response.
func Delivered(resp *http.Response) Outcome {
	return Outcome{kind: OutcomeDelivered, Response: resp}
}

// FailedWithResponse wraps a failure that carries a response.
func FailedWithResponse(resp *http.Response, cause error) Outcome {
	return Outcome{kind: OutcomeFailedWithResponse, Response: resp, Err: cause}
}

// FailedWithoutResponse wraps a failure with no response.
func FailedWithoutResponse(cause error) Outcome {
	return Outcome{kind: OutcomeFailedWithoutResponse, Err: cause}
}

// Kind returns the variant. A FailedWithResponse outcome with a nil response is
// reported as FailedWithoutResponse.
func (o Outcome) Kind() OutcomeKind {
	if o.kind == OutcomeFailedWithResponse && o.Response == nil {
		return OutcomeFailedWithoutResponse
	}
	return o.kind
}

// Transport sends requests. It must be safe for concurrent use.
type Transport interface {
	// Send performs the exchange. options are transport-specific and forwarded
	// verbatim from the call; nil or empty means transport defaults.
	Send(ctx context.Context, req *http.Request, options map[string]any) Outcome
}
