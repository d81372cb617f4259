package dto

// SignupRequest 注册请求
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GoogleAuthRequest Google 登录，token 由前端取得
type GoogleAuthRequest struct {
	Token string `json:"token" binding:"required"`
}

// PasswordResetRequest 申请重置密码
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmRequest 使用重置码设置新密码
type PasswordResetConfirmRequest struct {
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expiresIn"`
	User      *UserInfo `json:"user"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID                    string `json:"id"`
	Email                 string `json:"email"`
	Name                  string `json:"name"`
	Avatar                string `json:"avatar,omitempty"`
	HasActiveSubscription bool   `json:"hasActiveSubscription"`
	IsAdmin               bool   `json:"isAdmin,omitempty"`
}

// UpdateProfileRequest 修改资料，未提供的字段保持不变
type UpdateProfileRequest struct {
	Name   *string `json:"name" binding:"omitempty,min=2,max=50"`
	Avatar *string `json:"avatar" binding:"omitempty,url,max=500"`
}
