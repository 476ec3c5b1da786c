// Package model はドメインモデルを定義する。
package model

import "time"

// Recipe はユーザーが所有するレシピを表す。
// UserIDは作成時に確定し、以後変更されない。
// OwnerUsernameは表示用にJOINで取得される派生フィールド。
type Recipe struct {
	ID            string
	UserID        string
	OwnerUsername string
	Title         string
	Description   string
	Ingredients   string
	Instructions  string
	ImageURL      string
	ExternalLink  string
	CuisineType   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
