// Package mailer はメール送信機能を提供する。
package mailer

import "context"

// Mailer はメール送信のインターフェース。
type Mailer interface {
	// SendPasswordReset はパスワード再設定メールを送信する。
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}
