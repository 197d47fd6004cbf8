package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"healthtrack-api/core/config"
	"healthtrack-api/core/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HEALTHTRACK_JWT_SECRET", "middleware-test-secret")
	t.Setenv("HEALTHTRACK_JWT_EXPIRY_HOURS", "72")
	t.Setenv("HEALTHTRACK_OAUTH_STATE_SECRET", "state-secret")
	t.Setenv("HEALTHTRACK_OAUTH_REDIRECT_URI", "https://app.example/integrations/callback")
	_, err := config.Load()
	require.NoError(t, err)
}

// authedServer wraps a probe handler in AuthMiddleware and records whether it
// ran and which user id it saw.
type authedServer struct {
	e       *echo.Echo
	called  bool
	gotUser uuid.UUID
}

func newAuthedServer() *authedServer {
	s := &authedServer{e: echo.New()}
	mw := NewMiddleware()
	s.e.GET("/private/ping", func(c echo.Context) error {
		s.called = true
		s.gotUser = c.Get(ContextUserIDKey).(uuid.UUID)
		return c.NoContent(http.StatusOK)
	}, mw.AuthMiddleware())
	return s
}

func (s *authedServer) request(authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	loadTestConfig(t)
	userID := uuid.New()
	token, err := utils.GenerateToken(userID, "user")
	require.NoError(t, err)

	srv := newAuthedServer()
	rec := srv.request("Bearer " + token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.called)
	assert.Equal(t, userID, srv.gotUser)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	loadTestConfig(t)

	// Minted with a past expiry, then the config is restored so only the
	// expiry check fails.
	t.Setenv("HEALTHTRACK_JWT_EXPIRY_HOURS", "-1")
	_, err := config.Load()
	require.NoError(t, err)
	expired, err := utils.GenerateToken(uuid.New(), "user")
	require.NoError(t, err)
	t.Setenv("HEALTHTRACK_JWT_EXPIRY_HOURS", "72")
	_, err = config.Load()
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
		wantCode      string
	}{
		{
			name:          "missing header",
			authorization: "",
			wantCode:      "MISSING_AUTHORIZATION_HEADER",
		},
		{
			name:          "not a bearer token",
			authorization: "Basic dXNlcjpwYXNz",
			wantCode:      "INVALID_TOKEN_FORMAT",
		},
		{
			name:          "garbage token",
			authorization: "Bearer not-a-jwt",
			wantCode:      "INVALID_TOKEN_FORMAT",
		},
		{
			name:          "expired token",
			authorization: "Bearer " + expired,
			wantCode:      "TOKEN_EXPIRED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAuthedServer()
			rec := srv.request(tt.authorization)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, srv.called)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}
