package ports

import (
	"context"
	"net/http"

	"github.com/aretw0/asyncsoap/pkg/domain"
)

// Binding converts invocations into transport requests and transport
// responses into results. Implementations must be safe for concurrent use.
type Binding interface {
	// BuildRequest renders the invocation into an HTTP request.
	// It fails with *domain.BuildError when the operation or arguments are rejected.
	BuildRequest(ctx context.Context, inv domain.Invocation) (*http.Request, error)

	// InterpretResponse decodes resp into a Result. It returns *domain.Fault when the
	// response carries an application-level fault and *domain.DecodeError when it
	// cannot be understood. It does not close resp.Body.
	InterpretResponse(resp *http.Response, operation string) (domain.Result, error)

	// Operations lists the operations the binding knows, sorted.
	// An empty list means any operation name is accepted.
	Operations() []string
}

// BindingSupplier is an asynchronous value yielding a Binding.
// Resolution is memoized: every caller observes the same Binding or the same failure.
type BindingSupplier interface {
	Await(ctx context.Context) (Binding, error)
}
