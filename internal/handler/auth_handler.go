// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/recipebox/internal/metrics"
	"github.com/hitoshi/recipebox/internal/middleware"
	"github.com/hitoshi/recipebox/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, email, password string) (*model.User, *model.Session, error)
	Login(ctx context.Context, username, password string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, uidb64, token, newPassword string) error
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service      AuthServiceInterface
	cookieConfig middleware.SessionCookieConfig
	collector    metrics.MetricsCollector // nilの場合はメトリクスを記録しない
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, cookieConfig middleware.SessionCookieConfig, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service:      service,
		cookieConfig: cookieConfig,
		collector:    collector,
	}
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword  string `json:"old_password"`
	NewPassword  string `json:"new_password"`
	NewPassword2 string `json:"new_password2"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetConfirmRequest struct {
	UID          string `json:"uidb64"`
	Token        string `json:"token"`
	NewPassword  string `json:"new_password"`
	NewPassword2 string `json:"new_password2"`
}

// Register は新規ユーザー登録を処理する。登録に成功すると
// セッションCookieを発行し、そのままログイン状態にする。
// POST /api/users/register/
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	// 確認用パスワードの不一致は永続化前に弾く
	if req.Password != req.Password2 {
		handleServiceError(w, model.NewFieldError("password2", "パスワードが一致しません。"))
		return
	}

	user, session, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.SetSessionCookie(w, h.cookieConfig, session.ID)

	if h.collector != nil {
		h.collector.RecordRegistration()
	}

	writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"message":  "ユーザー登録が完了しました。",
		"username": user.Username,
	})
}

// Login はユーザー名とパスワードによるログインを処理する。
// POST /api/users/login/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	user, session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if h.collector != nil {
			var apiErr *model.APIError
			if errors.As(err, &apiErr) {
				h.collector.RecordLoginFailure()
			}
		}
		handleServiceError(w, err)
		return
	}

	middleware.SetSessionCookie(w, h.cookieConfig, session.ID)

	if h.collector != nil {
		h.collector.RecordLogin()
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message":     "ログインしました。",
		"username":    user.Username,
		"user_id":     user.ID,
		"session_key": session.ID,
	})
}

// Logout はセッションを破棄する。
// POST /api/users/logout/
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		slog.Error("failed to logout", slog.String("error", err.Error()))
		// セッション削除に失敗してもCookieはクリアする
	}

	middleware.ClearSessionCookie(w, h.cookieConfig)

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "ログアウトしました。",
	})
}

// Me は現在のログインユーザー情報を返す。
// GET /api/users/me/
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"date_joined": user.DateJoined,
	})
}

// ChangePassword は現在のパスワードを検証のうえ変更する。
// 既存セッションはすべて破棄されるため、再ログインが必要になる。
// POST /api/users/change-password/
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.NewPassword != req.NewPassword2 {
		handleServiceError(w, model.NewFieldError("new_password2", "パスワードが一致しません。"))
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.ClearSessionCookie(w, h.cookieConfig)

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "パスワードを変更しました。新しいパスワードで再度ログインしてください。",
	})
}

// RequestPasswordReset はパスワード再設定メールの送信を受け付ける。
// メールアドレスの登録有無によらず常に同一のレスポンスを返す。
// POST /api/users/password-reset-request/
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.Email == "" {
		handleServiceError(w, model.NewFieldError("email", "メールアドレスは必須です。"))
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "パスワード再設定のメールを送信しました。メールをご確認ください。",
	})
}

// ConfirmPasswordReset はトークンを検証し、新しいパスワードを設定する。
// POST /api/users/password-reset-confirm/
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.NewPassword != req.NewPassword2 {
		handleServiceError(w, model.NewFieldError("new_password2", "パスワードが一致しません。"))
		return
	}

	if err := h.service.ConfirmPasswordReset(r.Context(), req.UID, req.Token, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordPasswordReset()
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "パスワードを再設定しました。新しいパスワードでログインしてください。",
	})
}
