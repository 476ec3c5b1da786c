// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashにはbcryptハッシュのみを格納し、平文パスワードは保持しない。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	DateJoined   time.Time
}

// Session はユーザーのログインセッションを表す。
// 1セッションは常に1ユーザーにのみ紐付く。
type Session struct {
	ID        string
	UserID    string
	Data      map[string]string
	ExpiresAt time.Time
	CreatedAt time.Time
}
