// Package correlation binds a per-request identifier to a context.Context.
//
// The id lives in the request's context tree only, so concurrent requests never see each
// other's value and nothing outlives the request once End is called.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

// Header carries the correlation id on inbound requests and outbound responses.
const Header = "X-Correlation-ID"

type ctxKey struct{}

// Begin adopts existing verbatim when non-empty, otherwise generates a fresh id, and returns a
// context scoped to the request. The returned end func must be called on every exit path.
func Begin(ctx context.Context, existing string) (context.Context, string, func()) {
	id := existing
	if id == "" {
		id = uuid.NewString()
	}
	scoped, cancel := context.WithCancel(context.WithValue(ctx, ctxKey{}, id))
	return scoped, id, cancel
}

// Current returns the id bound to ctx, or "" outside a correlation scope.
func Current(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
