// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// バリデーションエラーの場合はFieldsにフィールド別メッセージを格納する。
type APIError struct {
	Code     string              // エラーコード
	Message  string              // エラーメッセージ
	Category string              // カテゴリ: auth, validation, recipe, system
	Action   string              // ユーザー向け対処方法
	Fields   map[string][]string // フィールド別バリデーションメッセージ（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountDisabled    = "ACCOUNT_DISABLED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeRecipeNotFound     = "RECIPE_NOT_FOUND"
	ErrCodeCSRFFailed         = "CSRF_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError はフィールド別メッセージ付きのバリデーションエラーを生成する。
func NewValidationError(fields map[string][]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各フィールドのエラーメッセージを確認してください。",
		Fields:   fields,
	}
}

// NewFieldError は単一フィールドのバリデーションエラーを生成する。
func NewFieldError(field, message string) *APIError {
	return NewValidationError(map[string][]string{field: {message}})
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
// ユーザー名の存在有無によらず同一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "validation",
		Action:   "ユーザー名とパスワードを確認してください。",
		Fields: map[string][]string{
			"non_field_errors": {"ユーザー名またはパスワードが正しくありません。"},
		},
	}
}

// NewAccountDisabledError は無効化されたアカウントのログインエラーを生成する。
func NewAccountDisabledError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountDisabled,
		Message:  "このアカウントは無効化されています。",
		Category: "auth",
		Action:   "管理者にお問い合わせください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewRecipeNotFoundError はレシピ未検出エラーを生成する。
// 他ユーザー所有のレシピも存在しないレシピと区別せずこのエラーを返す。
func NewRecipeNotFoundError(recipeID string) *APIError {
	return &APIError{
		Code:     ErrCodeRecipeNotFound,
		Message:  fmt.Sprintf("指定されたレシピが見つかりません: %s", recipeID),
		Category: "recipe",
		Action:   "レシピIDを確認してください。",
	}
}

// NewCSRFFailedError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
