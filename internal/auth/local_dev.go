package auth

import (
	"context"

	"connectrpc.com/connect"
)

// DefaultDevUserID is the caller identity used when authentication is skipped.
const DefaultDevUserID = "local-dev-user"

// LocalDevInterceptor attaches a fixed identity to requests that no earlier
// interceptor identified. Used with the memory store and SKIP_AUTH.
func LocalDevInterceptor(uid string) connect.UnaryInterceptorFunc {
	if uid == "" {
		uid = DefaultDevUserID
	}
	dev := &UserClaims{
		UID:         uid,
		Email:       uid + "@localhost",
		DisplayName: "Local Dev User",
		Verified:    true,
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if isPublicEndpoint(req.Spec().Procedure) {
				return next(ctx, req)
			}
			if _, ok := GetUserClaims(ctx); !ok {
				ctx = withUserClaims(ctx, dev)
			}
			return next(ctx, req)
		}
	}
}
