package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Kind int

const (
	// KindUnavailable 网络错误、5xx、429，可以降级到本地账号
	KindUnavailable Kind = iota + 1
	// KindRejected 后端明确拒绝，不能降级
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// BackendError 认证后端调用失败
type BackendError struct {
	Kind       Kind
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth backend %s: %v", e.Kind, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth backend %s: %d %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("auth backend %s: %s", e.Kind, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func IsUnavailable(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Kind == KindUnavailable
}

func IsRejected(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Kind == KindRejected
}

type User struct {
	ID                    string `json:"id"`
	Email                 string `json:"email"`
	Name                  string `json:"name"`
	Avatar                string `json:"avatar,omitempty"`
	HasActiveSubscription bool   `json:"hasActiveSubscription,omitempty"`
}

type AuthResult struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient baseURL 为空时所有调用都返回 KindUnavailable
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Signup(ctx context.Context, email, name, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "name": name, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Google 用前端取得的 Google token 登录
func (c *Client) Google(ctx context.Context, googleToken string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"token": googleToken}
	if err := c.do(ctx, http.MethodPost, "/auth/google", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/password-reset", "", body, nil)
}

func (c *Client) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	body := map[string]string{"code": code, "new_password": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/password-reset/confirm", "", body, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	if c.baseURL == "" {
		return &BackendError{Kind: KindUnavailable, Message: "auth backend not configured"}
	}

	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("auth backend unreachable", zap.String("path", path), zap.Error(err))
		return &BackendError{Kind: KindUnavailable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &BackendError{Kind: KindUnavailable, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn("auth backend error", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return &BackendError{Kind: KindUnavailable, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if resp.StatusCode >= 400 {
		return &BackendError{Kind: KindRejected, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	payload, err := unwrap(raw)
	if err != nil {
		return err
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &BackendError{Kind: KindUnavailable, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// unwrap 兼容 {success, data, error} 包装和直接返回的数据
func unwrap(raw []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Success == nil {
		return raw, nil
	}

	if !*env.Success {
		be := &BackendError{Kind: KindRejected, Message: "API request failed"}
		if env.Error != nil {
			if env.Error.Message != "" {
				be.Message = env.Error.Message
			}
			be.Code = env.Error.Code
		}
		return nil, be
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return raw, nil
	}
	return env.Data, nil
}

func errorMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	var plain struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &plain); err == nil {
		for _, m := range []string{plain.Message, plain.Error, plain.Detail} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
