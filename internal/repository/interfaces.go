// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/recipebox/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdatePassword は指定ユーザーのパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// RecipeRepository はレシピデータの永続化インターフェース。
// 所有者によるフィルタはクエリ内で常に適用される。
// 他ユーザー所有のレシピは存在しないレシピと区別できない。
type RecipeRepository interface {
	// FindByIDAndOwner は指定IDかつ指定所有者のレシピを取得する。
	// 見つからない場合（他ユーザー所有を含む）はnilを返す。
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Recipe, error)

	// ListByOwner は指定所有者のレシピ一覧をcreated_at降順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Recipe, error)

	// Create はレシピを作成する。
	Create(ctx context.Context, recipe *model.Recipe) error

	// Update はレシピを更新する。所有者条件を含むWHERE句で更新する。
	// 対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, recipe *model.Recipe) (bool, error)

	// DeleteByIDAndOwner は指定IDかつ指定所有者のレシピを削除する。
	// 削除対象が存在しない場合はfalseを返す。
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (bool, error)
}
