package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/khip_server/internal/model"
)

// Clock 可手动推进的测试时钟
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Days 天数对应的时长
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// SetupTestRedis 启动 miniredis
func SetupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, mr, cleanup
}

// TestUser 创建测试用户，默认密码 password123
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	passwordHash := string(hash)

	n := time.Now().UnixNano()
	user := &model.User{
		ID:           fmt.Sprintf("local_%d", n),
		Email:        fmt.Sprintf("test_%d@example.com", n),
		Name:         fmt.Sprintf("testuser_%d", n%10000),
		Provider:     model.UserProviderLocal,
		PasswordHash: &passwordHash,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUserID 设置用户 ID
func WithUserID(id string) func(*model.User) {
	return func(u *model.User) {
		u.ID = id
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithResetCode 设置密码重置码
func WithResetCode(code string, expiresAt time.Time) func(*model.User) {
	return func(u *model.User) {
		u.ResetCode = &code
		u.ResetExpiresAt = &expiresAt
	}
}

// NewPurchase 构造新增购买的输入
func NewPurchase(userID string, typ model.PurchaseType, companyID string, status model.PurchaseStatus) model.NewPurchase {
	return model.NewPurchase{
		UserID:      userID,
		Type:        typ,
		CompanyID:   companyID,
		CompanyName: "Company " + companyID,
		Status:      status,
		Amount:      149,
	}
}
