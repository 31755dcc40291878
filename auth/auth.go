// Package auth provides the authentication function type used by the admin
// server's auth interceptor, plus a static bearer-token implementation.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"slices"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/Keksclan/goRawrStash/contextx"
)

// AuthFunc authenticates a gRPC request. It receives the request context,
// the full method name and the incoming metadata. On success it returns a
// (possibly enriched) context; on failure it returns an error. Errors that
// are not gRPC status errors are reported as codes.Unauthenticated.
type AuthFunc func(ctx context.Context, fullMethod string, md metadata.MD) (context.Context, error)

// AuthorizationHeader is the metadata key carrying "Bearer <token>".
const AuthorizationHeader = "authorization"

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrUnknownToken = errors.New("auth: unknown token")
)

// Token binds a shared secret to the actor it authenticates.
type Token struct {
	Secret string
	Actor  contextx.Actor
}

// BearerTokens returns an AuthFunc that accepts "authorization: Bearer
// <secret>" for any of tokens and stores the matching actor in the context.
// Secrets are compared in constant time. Empty secrets are ignored.
func BearerTokens(tokens ...Token) AuthFunc {
	tokens = slices.DeleteFunc(slices.Clone(tokens), func(t Token) bool { return t.Secret == "" })
	return func(ctx context.Context, _ string, md metadata.MD) (context.Context, error) {
		secret, ok := bearer(md)
		if !ok {
			return ctx, ErrMissingToken
		}
		var (
			actor contextx.Actor
			found bool
		)
		for _, t := range tokens {
			if subtle.ConstantTimeCompare([]byte(secret), []byte(t.Secret)) == 1 {
				actor, found = t.Actor, true
			}
		}
		if !found {
			return ctx, ErrUnknownToken
		}
		return contextx.WithActor(ctx, actor), nil
	}
}

// Public wraps fn so that the listed full methods skip authentication.
func Public(fn AuthFunc, fullMethods ...string) AuthFunc {
	return func(ctx context.Context, fullMethod string, md metadata.MD) (context.Context, error) {
		if slices.Contains(fullMethods, fullMethod) {
			return ctx, nil
		}
		return fn(ctx, fullMethod, md)
	}
}

func bearer(md metadata.MD) (string, bool) {
	vals := md.Get(AuthorizationHeader)
	if len(vals) == 0 {
		return "", false
	}
	scheme, secret, ok := strings.Cut(vals[0], " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	secret = strings.TrimSpace(secret)
	return secret, secret != ""
}
