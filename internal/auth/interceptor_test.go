package auth

import (
	"context"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	claims *UserClaims
	err    error
	tokens []string
}

func (f *fakeVerifier) VerifyToken(_ context.Context, token string) (*UserClaims, error) {
	f.tokens = append(f.tokens, token)
	return f.claims, f.err
}

// callThrough runs the interceptor around a handler that records the caller.
func callThrough(t *testing.T, interceptor connect.UnaryInterceptorFunc, headers map[string]string) (string, error) {
	t.Helper()
	req := connect.NewRequest(&struct{}{})
	for k, v := range headers {
		req.Header().Set(k, v)
	}
	var seen string
	next := func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		seen, _ = GetUserID(ctx)
		return connect.NewResponse(&struct{}{}), nil
	}
	_, err := interceptor(next)(context.Background(), req)
	return seen, err
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name        string
		authHeader  string
		expectedErr bool
		errContains string
		wantToken   string
	}{
		{
			name:        "empty header",
			authHeader:  "",
			expectedErr: true,
			errContains: "authorization header is required",
		},
		{
			name:        "no bearer prefix",
			authHeader:  "token123",
			expectedErr: true,
			errContains: "must be Bearer token",
		},
		{
			name:        "wrong prefix",
			authHeader:  "Basic token123",
			expectedErr: true,
			errContains: "must be Bearer token",
		},
		{
			name:        "bearer with empty token",
			authHeader:  "Bearer ",
			expectedErr: true,
			errContains: "must be Bearer token",
		},
		{
			name:       "valid bearer token",
			authHeader: "Bearer mytoken123",
			wantToken:  "mytoken123",
		},
		{
			name:       "bearer mixed case",
			authHeader: "BEARER mytoken789",
			wantToken:  "mytoken789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ExtractTokenFromHeader(tt.authHeader)

			if tt.expectedErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
			}
		})
	}
}

func TestAuthInterceptor(t *testing.T) {
	t.Run("valid token sets claims", func(t *testing.T) {
		v := &fakeVerifier{claims: &UserClaims{UID: "user-1"}}
		uid, err := callThrough(t, AuthInterceptor(v), map[string]string{"Authorization": "Bearer tok"})
		require.NoError(t, err)
		assert.Equal(t, "user-1", uid)
		assert.Equal(t, []string{"tok"}, v.tokens)
	})

	t.Run("missing header", func(t *testing.T) {
		v := &fakeVerifier{}
		_, err := callThrough(t, AuthInterceptor(v), nil)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		assert.Empty(t, v.tokens)
	})

	t.Run("rejected token", func(t *testing.T) {
		v := &fakeVerifier{err: errors.New("expired")}
		_, err := callThrough(t, AuthInterceptor(v), map[string]string{"Authorization": "Bearer old"})
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}

func TestDebugAndLocalDevInterceptors(t *testing.T) {
	chain := func(skip bool) connect.UnaryInterceptorFunc {
		debug := DebugAuthInterceptor(skip)
		local := LocalDevInterceptor("")
		return func(next connect.UnaryFunc) connect.UnaryFunc {
			return debug(local(next))
		}
	}

	uid, err := callThrough(t, chain(true), map[string]string{"X-Debug-Impersonate-User": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", uid)

	uid, err = callThrough(t, chain(false), map[string]string{"X-Debug-Impersonate-User": "alice"})
	require.NoError(t, err)
	assert.Equal(t, DefaultDevUserID, uid, "impersonation ignored unless auth is skipped")
}

func TestContextUserClaims(t *testing.T) {
	t.Run("WithUserClaims adds claims to context", func(t *testing.T) {
		claims := &UserClaims{UID: "test-uid", Email: "test@example.com", Verified: true}
		got, ok := GetUserClaims(WithUserClaims(context.Background(), claims))
		require.True(t, ok)
		assert.Equal(t, claims, got)
	})

	t.Run("GetUserID returns empty for empty context", func(t *testing.T) {
		uid, ok := GetUserID(context.Background())
		assert.False(t, ok)
		assert.Empty(t, uid)
	})

	t.Run("nil claims are not an identity", func(t *testing.T) {
		_, ok := GetUserClaims(WithUserClaims(context.Background(), nil))
		assert.False(t, ok)
	})
}

func TestIsPublicEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		procedure string
		expected  bool
	}{
		{"health endpoint", "/health", true},
		{"ping endpoint", "/ping", true},
		{"receipt service endpoint", "/grocerylens.v1.ReceiptService/UploadReceipt", false},
		{"empty endpoint", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isPublicEndpoint(tt.procedure))
		})
	}
}

func TestClaimsFromToken(t *testing.T) {
	claims := claimsFromToken("uid-1", map[string]any{
		"email":          "shopper@example.com",
		"email_verified": true,
		"name":           "Sam Shopper",
	})
	assert.Equal(t, &UserClaims{UID: "uid-1", Email: "shopper@example.com", DisplayName: "Sam Shopper", Verified: true}, claims)

	partial := claimsFromToken("uid-2", map[string]any{"email": 42})
	assert.Equal(t, "uid-2", partial.UID)
	assert.Empty(t, partial.Email)
}
