// Package context carries request-scoped values: the trace id and the principal
// admitted by the route guard.
package context

type contextKey string
