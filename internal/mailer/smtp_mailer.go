package mailer

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// SMTPConfig はSMTP接続の設定。
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer はSMTP経由でメールを送信する。
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer はSMTPMailerを生成する。
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

// SendPasswordReset はパスワード再設定メールを送信する。
func (m *SMTPMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "パスワード再設定のご案内")
	msg.SetBody("text/plain", fmt.Sprintf(
		"パスワード再設定のリクエストを受け付けました。\n\n"+
			"以下のURLから新しいパスワードを設定してください。\n%s\n\n"+
			"このリクエストに心当たりがない場合は、このメールを無視してください。\n",
		resetURL,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send password reset mail: %w", err)
	}
	return nil
}

var _ Mailer = (*SMTPMailer)(nil)
