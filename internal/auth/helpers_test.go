package auth

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuth(t *testing.T) {
	t.Run("returns error when no claims in context", func(t *testing.T) {
		claims, err := RequireAuth(context.Background())
		assert.Nil(t, claims)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("returns error for claims without uid", func(t *testing.T) {
		_, err := RequireAuth(withUserClaims(context.Background(), &UserClaims{Email: "x@y"}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("returns claims when present in context", func(t *testing.T) {
		ctx := withUserClaims(context.Background(), &UserClaims{UID: "user-123", Email: "test@example.com"})
		claims, err := RequireAuth(ctx)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UID)
	})
}

func TestRequireOwner(t *testing.T) {
	ctx := withUserClaims(context.Background(), &UserClaims{UID: "user-123"})

	t.Run("owner", func(t *testing.T) {
		claims, err := RequireOwner(ctx, "user-123")
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UID)
	})

	t.Run("other user", func(t *testing.T) {
		_, err := RequireOwner(ctx, "user-456")
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
		assert.Contains(t, err.Error(), "cannot access another user's resources")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := RequireOwner(context.Background(), "user-123")
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}

func TestNormalizePageSize(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int32
	}{
		{"zero returns default", 0, 50},
		{"negative returns default", -1, 50},
		{"valid size unchanged", 20, 20},
		{"over max returns max", 2000, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePageSize(tt.input))
		})
	}
}

func TestWrapStoreError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.Nil(t, WrapStoreError("create receipt", nil))
	})

	t.Run("wraps error with operation", func(t *testing.T) {
		err := WrapStoreError("create receipt", assert.AnError)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create receipt")
		assert.ErrorIs(t, err, assert.AnError)
	})
}
