package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserinfoServer(t *testing.T, status int, user *GoogleUser) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if user != nil {
			json.NewEncoder(w).Encode(user)
		}
	}))
}

func TestGoogleProfile_GetUser(t *testing.T) {
	server := newUserinfoServer(t, http.StatusOK, &GoogleUser{
		Sub:           "1234567890",
		Email:         "google@example.com",
		EmailVerified: true,
		Name:          "Google User",
		Picture:       "https://lh3.example.com/a.png",
	})
	defer server.Close()

	profile := NewGoogleProfile(server.URL)
	user, err := profile.GetUser(context.Background(), "good-token")

	require.NoError(t, err)
	assert.Equal(t, "1234567890", user.Sub)
	assert.Equal(t, "google@example.com", user.Email)
	assert.True(t, user.EmailVerified)
	assert.Equal(t, "Google User", user.Name)
}

func TestGoogleProfile_InvalidToken(t *testing.T) {
	server := newUserinfoServer(t, http.StatusOK, &GoogleUser{Sub: "1", Email: "a@b.c"})
	defer server.Close()

	profile := NewGoogleProfile(server.URL)

	_, err := profile.GetUser(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)

	_, err = profile.GetUser(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)
}

func TestGoogleProfile_MissingEmail(t *testing.T) {
	server := newUserinfoServer(t, http.StatusOK, &GoogleUser{Sub: "1"})
	defer server.Close()

	_, err := NewGoogleProfile(server.URL).GetUser(context.Background(), "good-token")
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)
}

func TestGoogleProfile_UpstreamError(t *testing.T) {
	server := newUserinfoServer(t, http.StatusBadGateway, nil)
	defer server.Close()

	_, err := NewGoogleProfile(server.URL).GetUser(context.Background(), "good-token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidGoogleToken)
}

func TestNewGoogleProfile_DefaultURL(t *testing.T) {
	assert.Equal(t, DefaultGoogleUserinfoURL, NewGoogleProfile("").userinfoURL)
}
