package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/model/dto"
	"github.com/qs3c/khip_server/internal/repository"
)

type UserService struct {
	userRepo    *repository.UserRepository
	entitlement *EntitlementService
	cfg         *config.Config
}

func NewUserService(userRepo *repository.UserRepository, entitlement *EntitlementService, cfg *config.Config) *UserService {
	return &UserService{
		userRepo:    userRepo,
		entitlement: entitlement,
		cfg:         cfg,
	}
}

// GetProfile 读取本地缓存的用户资料，不访问认证后端
func (s *UserService) GetProfile(userID string) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.buildUserInfo(user), nil
}

// UpdateProfile 修改本地资料。后端账号下次登录时会被后端资料覆盖
func (s *UserService) UpdateProfile(userID string, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Avatar != nil {
		user.AvatarURL = *req.Avatar
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	return s.buildUserInfo(user), nil
}

func (s *UserService) buildUserInfo(user *model.User) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:     user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Avatar: user.AvatarURL,
	}
	if s.cfg != nil {
		info.IsAdmin = s.cfg.Admin.IsAdmin(user.Email)
	}
	if s.entitlement != nil {
		info.HasActiveSubscription = s.entitlement.HasSnapshotPlan(user.ID)
	}
	return info
}
