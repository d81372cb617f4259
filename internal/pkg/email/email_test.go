package email

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qs3c/khip_server/config"
)

func TestPasswordResetBody(t *testing.T) {
	body := PasswordResetBody("abc123")
	assert.Contains(t, body, "abc123")
	assert.Contains(t, body, "30 minutes")
}

func TestSend_NotConfigured(t *testing.T) {
	svc := NewService(&config.EmailConfig{})
	assert.ErrorIs(t, svc.SendPasswordResetCode("a@example.com", "abc"), ErrNotConfigured)

	svc = NewService(nil)
	assert.ErrorIs(t, svc.SendPasswordResetCode("a@example.com", "abc"), ErrNotConfigured)
}
