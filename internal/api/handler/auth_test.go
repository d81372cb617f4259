package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/api/middleware"
	"github.com/qs3c/khip_server/internal/model/dto"
	"github.com/qs3c/khip_server/internal/pkg/authclient"
	"github.com/qs3c/khip_server/internal/pkg/jwt"
	"github.com/qs3c/khip_server/internal/pkg/oauth"
	"github.com/qs3c/khip_server/internal/pkg/response"
	"github.com/qs3c/khip_server/internal/pkg/tokenstore"
	"github.com/qs3c/khip_server/internal/repository"
	"github.com/qs3c/khip_server/internal/service"
	"github.com/qs3c/khip_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key"

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// decodeData 把响应中的 data 解到目标结构
func decodeData(t *testing.T, resp response.Response, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func mockAuth(userID, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.EmailKey, email)
		c.Next()
	}
}

// stubBackend 认证后端，默认不可用
type stubBackend struct {
	result *authclient.AuthResult
	err    error
}

func (b *stubBackend) Login(ctx context.Context, email, password string) (*authclient.AuthResult, error) {
	return b.result, b.err
}

func (b *stubBackend) Signup(ctx context.Context, email, name, password string) (*authclient.AuthResult, error) {
	return b.result, b.err
}

func (b *stubBackend) Google(ctx context.Context, googleToken string) (*authclient.AuthResult, error) {
	return b.result, b.err
}

func (b *stubBackend) Logout(ctx context.Context, token string) error {
	return b.err
}

func (b *stubBackend) Me(ctx context.Context, token string) (*authclient.User, error) {
	return nil, b.err
}

func (b *stubBackend) RequestPasswordReset(ctx context.Context, email string) error {
	return b.err
}

func (b *stubBackend) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	return b.err
}

type stubGoogle struct{}

func (stubGoogle) GetUser(ctx context.Context, accessToken string) (*oauth.GoogleUser, error) {
	return nil, oauth.ErrInvalidGoogleToken
}

type authEnv struct {
	handler *AuthHandler
	backend *stubBackend
	tokens  *tokenstore.Store
	db      *gorm.DB
}

func setupAuthHandler(t *testing.T) (*authEnv, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	rdb, _, cleanupRedis := testutil.SetupTestRedis(t)

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:      testJWTSecret,
			ExpireHours: 24,
		},
	}

	purchases, err := repository.NewPurchaseRepository(context.Background(), repository.NewMemoryBackend(nil), nil)
	require.NoError(t, err)
	entitlement := service.NewEntitlementService(purchases, nil, nil)

	env := &authEnv{
		backend: &stubBackend{err: &authclient.BackendError{Kind: authclient.KindUnavailable, Message: "down"}},
		tokens:  tokenstore.NewStore(rdb),
		db:      db,
	}
	authService := service.NewAuthService(repository.NewUserRepository(db), env.backend, stubGoogle{},
		env.tokens, nil, entitlement, cfg, nil)
	env.handler = NewAuthHandler(authService)

	cleanup := func() {
		cleanupRedis()
		testutil.CleanupTestDB(t, db)
	}
	return env, cleanup
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	env, cleanup := setupAuthHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/signup", env.handler.Signup)

	w := performRequest(router, "POST", "/signup", dto.SignupRequest{
		Email:    "test@example.com",
		Name:     "Tester",
		Password: "password123",
	})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	var login dto.LoginResponse
	decodeData(t, resp, &login)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "test@example.com", login.User.Email)

	// 重复注册
	w = performRequest(router, "POST", "/signup", dto.SignupRequest{
		Email:    "test@example.com",
		Name:     "Tester",
		Password: "password123",
	})
	assert.Equal(t, response.CodeDuplicateAction, parseResponse(t, w).Code)
}

func TestAuthHandler_Signup_InvalidParams(t *testing.T) {
	env, cleanup := setupAuthHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/signup", env.handler.Signup)

	tests := []struct {
		name string
		body interface{}
	}{
		{"invalid email", map[string]string{"email": "nope", "name": "Tester", "password": "password123"}},
		{"short password", map[string]string{"email": "a@example.com", "name": "Tester", "password": "123"}},
		{"missing name", map[string]string{"email": "a@example.com", "password": "password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, "POST", "/signup", tt.body)
			assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	env, cleanup := setupAuthHandler(t)
	defer cleanup()

	testutil.TestUser(t, env.db, testutil.WithEmail("kim@example.com"))

	router := gin.New()
	router.POST("/login", env.handler.Login)

	w := performRequest(router, "POST", "/login", dto.LoginRequest{Email: "kim@example.com", Password: "password123"})
	assert.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	w = performRequest(router, "POST", "/login", dto.LoginRequest{Email: "kim@example.com", Password: "wrong"})
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}

func TestAuthHandler_Login_BackendRejected(t *testing.T) {
	env, cleanup := setupAuthHandler(t)
	defer cleanup()

	env.backend.err = &authclient.BackendError{Kind: authclient.KindRejected, StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}

	router := gin.New()
	router.POST("/login", env.handler.Login)

	w := performRequest(router, "POST", "/login", dto.LoginRequest{Email: "kim@example.com", Password: "password123"})
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeAuthFailed, resp.Code)
	assert.Equal(t, "Invalid credentials", resp.Message)
}

func TestAuthHandler_Google_InvalidToken(t *testing.T) {
	env, cleanup := setupAuthHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/google", env.handler.Google)

	w := performRequest(router, "POST", "/google", dto.GoogleAuthRequest{Token: "bad"})
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}

func TestAuthHandler_MeAndLogout(t *testing.T) {
	env, cleanup := setupAuthHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db, testutil.WithEmail("me@example.com"))
	token, err := jwt.GenerateToken(user.ID, user.Email, testJWTSecret, 24)
	require.NoError(t, err)

	router := gin.New()
	authRequired := middleware.Auth(testJWTSecret, env.tokens)
	router.GET("/me", authRequired, env.handler.Me)
	router.POST("/logout", authRequired, env.handler.Logout)

	send := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	resp := parseResponse(t, send("GET", "/me"))
	require.Equal(t, response.CodeSuccess, resp.Code)
	var info dto.UserInfo
	decodeData(t, resp, &info)
	assert.Equal(t, "me@example.com", info.Email)

	assert.Equal(t, response.CodeSuccess, parseResponse(t, send("POST", "/logout")).Code)

	// 注销后 token 失效
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, send("GET", "/me")).Code)
}

func TestAuthHandler_PasswordReset(t *testing.T) {
	env, cleanup := setupAuthHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/password-reset", env.handler.RequestPasswordReset)
	router.POST("/password-reset/confirm", env.handler.ConfirmPasswordReset)

	// 未注册邮箱直接成功
	w := performRequest(router, "POST", "/password-reset", dto.PasswordResetRequest{Email: "unknown@example.com"})
	assert.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	// 已注册但没有配置邮件
	testutil.TestUser(t, env.db, testutil.WithEmail("reset@example.com"))
	w = performRequest(router, "POST", "/password-reset", dto.PasswordResetRequest{Email: "reset@example.com"})
	assert.Equal(t, response.CodeServiceUnavailable, parseResponse(t, w).Code)

	w = performRequest(router, "POST", "/password-reset/confirm", dto.PasswordResetConfirmRequest{Code: "nope", NewPassword: "newpass1"})
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
}
