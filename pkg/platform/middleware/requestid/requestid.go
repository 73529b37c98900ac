// Package requestid tags every request with a correlation id. An incoming
// X-Request-ID is kept; otherwise a UUID is generated.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"catastro/pkg/requestcontext"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

// maxLength bounds ids accepted from clients.
const maxLength = 128

// Middleware stores the request id in the context and echoes it in the
// response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" || len(id) > maxLength {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		ctx = requestcontext.WithOrigin(ctx, "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
