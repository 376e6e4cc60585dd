package auth

import (
	"context"

	"connectrpc.com/connect"
	"github.com/rotisserie/eris"
)

// RequireAuth extracts user claims from context or returns an unauthenticated error
func RequireAuth(ctx context.Context) (*UserClaims, error) {
	claims, ok := GetUserClaims(ctx)
	if !ok || claims.UID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, eris.New("user not authenticated"))
	}
	return claims, nil
}

// RequireOwner verifies the authenticated user owns a resource.
func RequireOwner(ctx context.Context, ownerID string) (*UserClaims, error) {
	claims, err := RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if ownerID != claims.UID {
		return nil, connect.NewError(connect.CodePermissionDenied,
			eris.New("cannot access another user's resources"))
	}
	return claims, nil
}

// NormalizePageSize returns a valid page size (default 50, max 500)
func NormalizePageSize(pageSize int32) int32 {
	if pageSize <= 0 {
		return 50
	}
	if pageSize > 500 {
		return 500
	}
	return pageSize
}

// WrapStoreError wraps store errors with operation context
func WrapStoreError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return eris.Wrapf(err, "failed to %s", operation)
}
