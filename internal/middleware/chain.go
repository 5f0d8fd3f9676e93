// Package middleware provides the HTTP middleware stack for the preview
// server: request logging, security headers and CORS.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares around a handler. The first middleware
// added is the outermost wrapper and sees the request first.
type Chain struct {
	middlewares []Middleware
}

// NewChain builds a chain from the given middlewares, outermost first.
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use appends a middleware to the chain.
func (c *Chain) Use(middleware Middleware) {
	c.middlewares = append(c.middlewares, middleware)
}

// Apply wraps handler with the whole chain.
func (c *Chain) Apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		wrapped = c.middlewares[i](wrapped)
	}
	return wrapped
}

// Len reports how many middlewares the chain holds.
func (c *Chain) Len() int {
	return len(c.middlewares)
}
