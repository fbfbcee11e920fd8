package utils

import (
	"context"
	"fmt"

	"github.com/theforge/forge/pkg/logger"
	"gopkg.in/gomail.v2"
)

// EmailConfig holds SMTP and app settings, passed in from app config.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	AppURL       string
	FromEmail    string
}

// Mailer sends transactional email. Implemented by SMTPMailer; tests swap in
// an in-memory fake.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer delivers mail through the configured SMTP relay via gomail.
type SMTPMailer struct {
	Config EmailConfig
	Log    *logger.Logger
}

func NewSMTPMailer(cfg EmailConfig, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{Config: cfg, Log: log}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.Config.FromEmail)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	dialer := gomail.NewDialer(m.Config.SMTPHost, m.Config.SMTPPort, m.Config.SMTPUsername, m.Config.SMTPPassword)
	if err := dialer.DialAndSend(msg); err != nil {
		m.Log.Warn(ctx).WithFields("to", to, "subject", subject, "error", err.Error()).Logs("Email delivery failed")
		return WrapError(err, ErrInternalServerError.Status, "Failed to send email")
	}
	m.Log.Info(ctx).WithFields("to", to, "subject", subject).Logs("Email sent")
	return nil
}

// VerificationEmailBody renders the account verification email.
func VerificationEmailBody(cfg EmailConfig, username, token string) string {
	link := fmt.Sprintf("%s/verify-email?token=%s", cfg.AppURL, token)
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 40px auto; background: #ffffff; border-radius: 8px; overflow: hidden;">
    <div style="background: #1f2937; padding: 20px; text-align: center; color: #fff;">
      <h1 style="margin: 0; font-size: 24px;">Welcome to The Forge</h1>
    </div>
    <div style="padding: 30px; line-height: 1.6;">
      <p>Hi %s,</p>
      <p>Thanks for joining The Forge. Click the button below to verify your email address.</p>
      <p style="text-align: center;">
        <a href="%s" style="display: inline-block; padding: 12px 24px; background: #1f2937; color: #fff; text-decoration: none; border-radius: 5px; font-weight: bold;">Verify Email</a>
      </p>
      <p>If you did not create an account, you can ignore this message.</p>
    </div>
  </div>
</body>
</html>`, username, link)
}

// CommentNotificationEmailBody renders the "new comment" email for a subscriber.
func CommentNotificationEmailBody(cfg EmailConfig, recipient, commenter, contentTitle, excerpt string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 40px auto; background: #ffffff; border-radius: 8px; overflow: hidden;">
    <div style="background: #1f2937; padding: 20px; text-align: center; color: #fff;">
      <h1 style="margin: 0; font-size: 22px;">New comment on %s</h1>
    </div>
    <div style="padding: 30px; line-height: 1.6;">
      <p>Hi %s,</p>
      <p><strong>%s</strong> left a new comment:</p>
      <blockquote style="border-left: 4px solid #1f2937; margin: 16px 0; padding: 8px 16px; color: #444;">%s</blockquote>
      <p><a href="%s">Open The Forge</a> to reply.</p>
    </div>
  </div>
</body>
</html>`, contentTitle, recipient, commenter, excerpt, cfg.AppURL)
}
