package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/model/dto"
	"github.com/qs3c/khip_server/internal/pkg/authclient"
	"github.com/qs3c/khip_server/internal/pkg/email"
	"github.com/qs3c/khip_server/internal/pkg/jwt"
	"github.com/qs3c/khip_server/internal/pkg/oauth"
	"github.com/qs3c/khip_server/internal/pkg/tokenstore"
	"github.com/qs3c/khip_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetCode   = errors.New("reset code is invalid or expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidGoogleToken = errors.New("invalid google token")
)

const resetCodeTTL = 30 * time.Minute

// AuthBackend 外部认证服务
type AuthBackend interface {
	Login(ctx context.Context, email, password string) (*authclient.AuthResult, error)
	Signup(ctx context.Context, email, name, password string) (*authclient.AuthResult, error)
	Google(ctx context.Context, googleToken string) (*authclient.AuthResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*authclient.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
}

type GoogleProfileFetcher interface {
	GetUser(ctx context.Context, accessToken string) (*oauth.GoogleUser, error)
}

type AuthService struct {
	userRepo    *repository.UserRepository
	backend     AuthBackend
	google      GoogleProfileFetcher
	tokens      *tokenstore.Store
	mailer      email.Sender
	entitlement *EntitlementService
	cfg         *config.Config
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthService tokens、mailer 可以为 nil
func NewAuthService(
	userRepo *repository.UserRepository,
	backend AuthBackend,
	google GoogleProfileFetcher,
	tokens *tokenstore.Store,
	mailer email.Sender,
	entitlement *EntitlementService,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:    userRepo,
		backend:     backend,
		google:      google,
		tokens:      tokens,
		mailer:      mailer,
		entitlement: entitlement,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Signup 注册，认证后端不可用时创建本地账号
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.LoginResponse, error) {
	res, err := s.backend.Signup(ctx, req.Email, req.Name, req.Password)
	if err == nil {
		return s.fromBackend(ctx, res, model.UserProviderBackend)
	}
	if !authclient.IsUnavailable(err) {
		return nil, err
	}
	s.logger.Warn("auth backend unavailable, signing up locally", zap.String("email", req.Email), zap.Error(err))

	exists, err := s.userRepo.ExistsByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	passwordStr := string(hashed)

	user := &model.User{
		ID:           "local_" + uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		AvatarURL:    defaultAvatar(req.Email),
		Provider:     model.UserProviderLocal,
		PasswordHash: &passwordStr,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return s.issue(ctx, user, "")
}

// Login 邮箱密码登录
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	res, err := s.backend.Login(ctx, req.Email, req.Password)
	if err == nil {
		return s.fromBackend(ctx, res, model.UserProviderBackend)
	}
	if !authclient.IsUnavailable(err) {
		return nil, err
	}
	s.logger.Warn("auth backend unavailable, using local login", zap.String("email", req.Email), zap.Error(err))

	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user, "")
}

// Google 使用前端取得的 Google token 登录
func (s *AuthService) Google(ctx context.Context, googleToken string) (*dto.LoginResponse, error) {
	res, err := s.backend.Google(ctx, googleToken)
	if err == nil {
		return s.fromBackend(ctx, res, model.UserProviderGoogle)
	}
	if !authclient.IsUnavailable(err) {
		return nil, err
	}
	s.logger.Warn("auth backend unavailable, verifying google token locally", zap.Error(err))

	if s.google == nil {
		return nil, err
	}
	profile, err := s.google.GetUser(ctx, googleToken)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidGoogleToken) {
			return nil, ErrInvalidGoogleToken
		}
		return nil, fmt.Errorf("failed to get google user: %w", err)
	}
	// 未验证的邮箱不能关联到已有账号
	if !profile.EmailVerified || profile.Email == "" {
		s.logger.Warn("google email not verified", zap.String("sub", profile.Sub))
		return nil, ErrInvalidGoogleToken
	}

	user, err := s.userRepo.GetByEmail(profile.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if user == nil {
		user = &model.User{
			ID:        "google_" + profile.Sub,
			Email:     profile.Email,
			Name:      profile.Name,
			AvatarURL: profile.Picture,
			Provider:  model.UserProviderGoogle,
		}
		if user.Name == "" {
			user.Name = strings.Split(profile.Email, "@")[0]
		}
		if user.AvatarURL == "" {
			user.AvatarURL = defaultAvatar(profile.Email)
		}
		if err := s.userRepo.Create(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	} else if user.AvatarURL == "" && profile.Picture != "" {
		user.AvatarURL = profile.Picture
		if err := s.userRepo.Update(user); err != nil {
			return nil, err
		}
	}

	return s.issue(ctx, user, "")
}

// Logout 注销本地 token，通知认证后端失败只记录日志
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if claims == nil {
		return nil
	}

	if s.tokens != nil {
		backendToken, err := s.tokens.BackendToken(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("failed to look up backend token", zap.Error(err))
		}
		if backendToken != "" {
			if err := s.backend.Logout(ctx, backendToken); err != nil {
				s.logger.Warn("auth backend logout failed", zap.String("user_id", claims.UserID), zap.Error(err))
			}
			_ = s.tokens.ForgetBackendToken(ctx, claims.ID)
		}

		if err := s.tokens.Revoke(ctx, claims.ID, claims.TTL(s.now())); err != nil {
			return err
		}
	}

	s.logger.Info("user logged out", zap.String("user_id", claims.UserID))
	return nil
}

// Me 当前用户，认证后端可用时刷新本地资料
func (s *AuthService) Me(ctx context.Context, userID, tokenID string) (*dto.UserInfo, error) {
	if s.tokens != nil {
		backendToken, err := s.tokens.BackendToken(ctx, tokenID)
		if err != nil {
			s.logger.Warn("failed to look up backend token", zap.Error(err))
		}
		if backendToken != "" {
			remote, err := s.backend.Me(ctx, backendToken)
			switch {
			case err == nil:
				user, err := s.syncUser(remote, model.UserProviderBackend)
				if err != nil {
					return nil, err
				}
				return s.userInfo(user), nil
			case !authclient.IsUnavailable(err):
				return nil, err
			}
		}
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.userInfo(user), nil
}

// RequestPasswordReset 邮箱不存在时同样返回成功
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	err := s.backend.RequestPasswordReset(ctx, emailAddr)
	if err == nil || !authclient.IsUnavailable(err) {
		return err
	}
	s.logger.Warn("auth backend unavailable, issuing local reset code", zap.String("email", emailAddr), zap.Error(err))

	user, err := s.userRepo.GetByEmail(emailAddr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.PasswordHash == nil {
		return nil
	}

	if s.mailer == nil {
		return email.ErrNotConfigured
	}

	code, err := tokenstore.RandomCode(16)
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(resetCodeTTL)
	user.ResetCode = &code
	user.ResetExpiresAt = &expiresAt
	if err := s.userRepo.Update(user); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetCode(user.Email, code); err != nil {
		s.logger.Error("failed to send reset email", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ConfirmPasswordReset 使用重置码设置新密码
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	err := s.backend.ConfirmPasswordReset(ctx, code, newPassword)
	if err == nil || !authclient.IsUnavailable(err) {
		return err
	}
	s.logger.Warn("auth backend unavailable, confirming reset locally", zap.Error(err))

	user, err := s.userRepo.GetByResetCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetCode
		}
		return err
	}
	if user.ResetExpiresAt == nil || s.now().After(*user.ResetExpiresAt) {
		return ErrInvalidResetCode
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	passwordStr := string(hashed)
	user.PasswordHash = &passwordStr
	user.ResetCode = nil
	user.ResetExpiresAt = nil
	return s.userRepo.Update(user)
}

func (s *AuthService) fromBackend(ctx context.Context, res *authclient.AuthResult, provider string) (*dto.LoginResponse, error) {
	if res == nil || res.User == nil || res.User.ID == "" {
		return nil, &authclient.BackendError{Kind: authclient.KindRejected, Message: "auth backend returned no user"}
	}

	user, err := s.syncUser(res.User, provider)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, res.Token)
}

// syncUser 缓存认证后端的用户资料。同邮箱已有本地账号时沿用本地 ID
func (s *AuthService) syncUser(remote *authclient.User, provider string) (*model.User, error) {
	existing, err := s.userRepo.GetByEmail(remote.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if existing != nil {
		existing.Name = remote.Name
		if remote.Avatar != "" {
			existing.AvatarURL = remote.Avatar
		}
		if err := s.userRepo.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	user := &model.User{
		ID:        remote.ID,
		Email:     remote.Email,
		Name:      remote.Name,
		AvatarURL: remote.Avatar,
		Provider:  provider,
	}
	if user.AvatarURL == "" {
		user.AvatarURL = defaultAvatar(remote.Email)
	}
	if err := s.userRepo.Upsert(user); err != nil {
		return nil, err
	}
	return user, nil
}

// issue 签发本地 token，并记录对应的认证后端 token
func (s *AuthService) issue(ctx context.Context, user *model.User, backendToken string) (*dto.LoginResponse, error) {
	token, err := jwt.GenerateToken(user.ID, user.Email, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	if backendToken != "" && s.tokens != nil {
		claims, err := jwt.ParseToken(token, s.cfg.JWT.Secret)
		if err != nil {
			return nil, err
		}
		if err := s.tokens.SaveBackendToken(ctx, claims.ID, backendToken, claims.TTL(s.now())); err != nil {
			s.logger.Warn("failed to save backend token", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return &dto.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.cfg.JWT.ExpireHours) * 3600,
		User:      s.userInfo(user),
	}, nil
}

func (s *AuthService) userInfo(user *model.User) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Avatar:  user.AvatarURL,
		IsAdmin: s.cfg.Admin.IsAdmin(user.Email),
	}
	if s.entitlement != nil {
		info.HasActiveSubscription = s.entitlement.HasSnapshotPlan(user.ID)
	}
	return info
}

func defaultAvatar(seed string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(seed)
}
