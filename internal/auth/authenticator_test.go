package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigachat/pkg/core"
)

func TestAuthenticator_Refresh(t *testing.T) {
	expiresAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer c2VjcmV0", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, err := uuid.Parse(r.Header.Get("RqUID"))
		assert.NoError(t, err, "RqUID must be a uuid")
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "GIGACHAT_API_CORP", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc.def","expires_at":` + strconv.FormatInt(expiresAt.UnixMilli(), 10) + `}`))
	}))
	defer server.Close()

	a := NewAuthenticator(server.Client(), "c2VjcmV0", WithURL(server.URL), WithScope(core.ScopeCorp))
	cred, err := a.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc.def", cred.AccessToken)
	assert.Equal(t, core.ScopeCorp, cred.Scope)
	assert.True(t, cred.ExpiresAt.Equal(expiresAt))
}

func TestAuthenticator_RefreshErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantType   error
		wantStatus int
	}{
		{
			name:       "rejected secret",
			statusCode: http.StatusUnauthorized,
			body:       `{"code":6,"message":"credentials doesn't match db data"}`,
			wantType:   core.ErrAuthFailed,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			body:       "oops",
			wantType:   core.ErrAuthFailed,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "not json",
			statusCode: http.StatusOK,
			body:       "<html>",
			wantType:   core.ErrAuthResponseMalformed,
		},
		{
			name:       "missing token",
			statusCode: http.StatusOK,
			body:       `{"expires_at":1}`,
			wantType:   core.ErrAuthResponseMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			a := NewAuthenticator(server.Client(), "secret", WithURL(server.URL))
			_, err := a.Refresh(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantType), "got %v", err)

			var gerr *core.Error
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, tt.wantStatus, gerr.StatusCode)
			assert.Equal(t, tt.body, gerr.Body)
		})
	}
}

func TestAuthenticator_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	a := NewAuthenticator(nil, "secret", WithURL(url))
	_, err := a.Refresh(context.Background())
	assert.ErrorIs(t, err, core.ErrTransport)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Bearer x", normalize("x"))
	assert.Equal(t, "Bearer x", normalize("Bearer x"))
}
