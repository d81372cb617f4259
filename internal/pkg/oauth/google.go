package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const DefaultGoogleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var ErrInvalidGoogleToken = errors.New("invalid google token")

type GoogleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleProfile 用前端取得的 access token 读取 Google 用户信息
type GoogleProfile struct {
	userinfoURL string
}

func NewGoogleProfile(userinfoURL string) *GoogleProfile {
	if userinfoURL == "" {
		userinfoURL = DefaultGoogleUserinfoURL
	}
	return &GoogleProfile{userinfoURL: userinfoURL}
}

// GetUser 获取 Google 用户信息
func (g *GoogleProfile) GetUser(ctx context.Context, accessToken string) (*GoogleUser, error) {
	if accessToken == "" {
		return nil, ErrInvalidGoogleToken
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidGoogleToken
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google api error: %d %s", resp.StatusCode, string(body))
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if user.Sub == "" || user.Email == "" {
		return nil, ErrInvalidGoogleToken
	}

	return &user, nil
}
