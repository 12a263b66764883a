package ports

import (
	"context"

	"github.com/aretw0/asyncsoap/pkg/domain"
)

// Caller is the synchronous call surface driving adapters (HTTP gateway,
// MCP server, CLI) need from a client.
type Caller interface {
	// Dispatch runs operation and blocks until it settles.
	Dispatch(ctx context.Context, operation string, args []any, options domain.Options) (domain.Result, error)

	// Operations lists the operations the client knows. An empty list means
	// any operation name is accepted.
	Operations(ctx context.Context) ([]string, error)
}
