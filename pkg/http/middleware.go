package httpx

import (
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
)

// CommonMiddleware returns a middleware that sets the CORS headers and
// answers preflight requests. extraHeaders are added to the allowed request
// headers, e.g. the header carrying the authenticated user.
func CommonMiddleware(extraHeaders ...string) func(http.Handler) http.Handler {
	allowed := strings.Join(append([]string{"Content-Type", "Authorization"}, extraHeaders...), ",")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", allowed)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Wrap decorates a router for serving: panics become 500s and every request
// is written to out in Apache common log format.
func Wrap(next http.Handler, out io.Writer, extraHeaders ...string) http.Handler {
	h := CommonMiddleware(extraHeaders...)(next)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)

	return handlers.LoggingHandler(out, h)
}
