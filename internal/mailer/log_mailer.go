package mailer

import (
	"context"
	"log/slog"
)

// LogMailer はメールを送信せず内容をログに出力する。
// SMTP未設定の開発環境向け。
type LogMailer struct{}

// NewLogMailer はLogMailerを生成する。
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// SendPasswordReset は再設定URLをログに出力する。
func (m *LogMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	slog.Info("password reset mail (log only)",
		slog.String("to", to),
		slog.String("reset_url", resetURL),
	)
	return nil
}

var _ Mailer = (*LogMailer)(nil)
