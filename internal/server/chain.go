package server

import "net/http"

// Middleware wraps a handler and returns the wrapped handler.
type Middleware func(http.Handler) http.Handler

// Chain applies m around h so that m[0] is the outermost layer.
func Chain(h http.Handler, m ...Middleware) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}
