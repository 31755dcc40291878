package contextx

import "context"

// RequestIDHeader is the metadata key a client may use to supply its own
// request ID. The server echoes the effective ID under the same key.
const RequestIDHeader = "x-request-id"

// maxRequestIDLen bounds caller-supplied IDs so they stay log friendly.
const maxRequestIDLen = 64

// WithRequestID returns a derived context that carries the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID stored in ctx.
// It returns an empty string when no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ValidRequestID reports whether a caller-supplied ID may be adopted:
// non-empty, at most 64 bytes, printable ASCII without spaces.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}
