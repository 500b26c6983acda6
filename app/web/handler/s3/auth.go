package s3

import (
	"net/http"

	"github.com/go-mizu/mizu"

	"github.com/go-mizu/blueprints/casgate/internal/s3sig"
)

// AuthMiddleware wraps a route with SigV4 verification when verifier is
// non-nil. spec.md §4.3: absence of AuthConfig disables C3 entirely, so a
// nil verifier returns a pass-through middleware, not an error. It
// operates on the raw request before any handler reads the body, since a
// streaming-payload request must have its body rewritten before anything
// downstream reads it.
func AuthMiddleware(verifier *s3sig.Verifier) mizu.Middleware {
	if verifier == nil {
		return func(next mizu.Handler) mizu.Handler { return next }
	}
	return func(next mizu.Handler) mizu.Handler {
		return func(c *mizu.Ctx) error {
			if err := verifier.Verify(c.Request()); err != nil {
				c.Writer().WriteHeader(http.StatusUnauthorized)
				return nil
			}
			return next(c)
		}
	}
}
