// Package contextx carries request-scoped values set by the admin server's
// interceptors: the authenticated actor and the request ID.
package contextx

// contextKey is an unexported type used as context key to avoid collisions
// with keys defined in other packages.
type contextKey int

const (
	actorKey contextKey = iota
	requestIDKey
)
