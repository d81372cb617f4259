package email

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/qs3c/khip_server/config"
)

var ErrNotConfigured = errors.New("smtp not configured")

// Sender 发送邮件的最小接口，测试中替换
type Sender interface {
	SendPasswordResetCode(to, code string) error
}

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// SendPasswordResetCode 发送密码重置码
func (s *Service) SendPasswordResetCode(to, code string) error {
	subject := "Password reset - KHIP Insight"
	return s.sendHTML(to, subject, PasswordResetBody(code))
}

// PasswordResetBody 重置码邮件正文
func PasswordResetBody(code string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #1e3a8a;">Password reset</h2>
        <p>Use the code below to set a new password for your KHIP account:</p>
        <div style="background-color: #f3f4f6; padding: 15px; text-align: center; font-size: 20px; font-weight: bold; letter-spacing: 2px; margin: 20px 0;">
            %s
        </div>
        <p>The code expires in 30 minutes. If you did not request a reset, ignore this email.</p>
    </div>
</body>
</html>
`, code)
}

func (s *Service) sendHTML(to, subject, body string) error {
	if s.cfg == nil || s.cfg.SMTPHost == "" {
		return ErrNotConfigured
	}

	headers := [][2]string{
		{"From", s.cfg.From},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
