// Package auth はユーザー登録、ログイン、パスワード管理、セッション発行を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/recipebox/internal/mailer"
	"github.com/hitoshi/recipebox/internal/model"
	"github.com/hitoshi/recipebox/internal/repository"
)

// usernamePattern はユーザー名に使用できる文字を定義する。
var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int    // セッション有効期間（秒）
	FrontendURL   string // 再設定メールに記載するフロントエンドのURL
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	mailer      mailer.Mailer
	tokens      *ResetTokenGenerator
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	m mailer.Mailer,
	tokens *ResetTokenGenerator,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		mailer:      m,
		tokens:      tokens,
		config:      config,
	}
}

// Register は新規ユーザーを登録し、セッションを発行する。
// バリデーション失敗時はフィールド別メッセージを含むAPIErrorを返す。
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, *model.Session, error) {
	fields := map[string][]string{}

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case username == "":
		fields["username"] = append(fields["username"], "ユーザー名は必須です。")
	case len(username) > 150:
		fields["username"] = append(fields["username"], "ユーザー名は150文字以内で入力してください。")
	case !usernamePattern.MatchString(username):
		fields["username"] = append(fields["username"], "ユーザー名には英数字と @/./+/-/_ のみ使用できます。")
	}

	switch {
	case email == "":
		fields["email"] = append(fields["email"], "メールアドレスは必須です。")
	case len(email) > 254:
		fields["email"] = append(fields["email"], "メールアドレスは254文字以内で入力してください。")
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			fields["email"] = append(fields["email"], "有効なメールアドレスを入力してください。")
		}
	}

	for _, problem := range ValidatePasswordStrength(password, username, email) {
		fields["password"] = append(fields["password"], problem)
	}

	if len(fields) > 0 {
		return nil, nil, model.NewValidationError(fields)
	}

	// 一意性チェック
	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		fields["username"] = append(fields["username"], "このユーザー名は既に使用されています。")
	}

	existing, err = s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		fields["email"] = append(fields["email"], "このメールアドレスは既に登録されています。")
	}

	if len(fields) > 0 {
		return nil, nil, model.NewValidationError(fields)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		DateJoined:   time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, nil, model.NewFieldError("username", "このユーザー名は既に使用されています。")
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, nil, model.NewFieldError("email", "このメールアドレスは既に登録されています。")
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	// 登録直後からログイン状態にする
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, session, nil
}

// Login はユーザー名とパスワードで認証し、セッションを発行する。
// ユーザーの存在有無とパスワード不一致は同一のエラーとして扱う。
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, *model.Session, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if !user.IsActive {
		return nil, nil, model.NewAccountDisabledError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// ChangePassword は現在のパスワードを検証のうえ新しいパスワードに変更する。
// 変更後は既存セッションをすべて破棄するため、再ログインが必要になる。
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUnauthorizedError()
	}

	if !CheckPassword(user.PasswordHash, oldPassword) {
		return model.NewFieldError("old_password", "現在のパスワードが正しくありません。")
	}

	if problems := ValidatePasswordStrength(newPassword, user.Username, user.Email); len(problems) > 0 {
		return model.NewValidationError(map[string][]string{"new_password": problems})
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// 他端末のセッションを含めすべて無効化する
	if err := s.sessionRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	slog.Info("password changed", slog.String("user_id", user.ID))

	return nil
}

// RequestPasswordReset はパスワード再設定メールの送信を受け付ける。
// メールアドレスの登録有無によらず常に成功を返す。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		slog.Info("password reset requested for unknown email")
		return nil
	}

	token := s.tokens.Make(user)
	uid := EncodeUserID(user.ID)
	resetURL := fmt.Sprintf("%s/reset-password-confirm/%s/%s/",
		strings.TrimRight(s.config.FrontendURL, "/"), uid, token)

	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		// 送信失敗をレスポンスに反映するとメールアドレスの登録有無が漏れる
		slog.Error("failed to send password reset mail",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	slog.Info("password reset mail sent", slog.String("user_id", user.ID))
	return nil
}

// ConfirmPasswordReset はトークンを検証し、新しいパスワードを設定する。
// 設定後は既存セッションをすべて破棄する。
func (s *Service) ConfirmPasswordReset(ctx context.Context, uidb64, token, newPassword string) error {
	invalidToken := model.NewFieldError("token", "トークンが無効または期限切れです。")

	userID, err := DecodeUserID(uidb64)
	if err != nil {
		return invalidToken
	}

	// 復号結果がUUIDでない場合はDBに渡さずトークン不正として扱う
	if _, err := uuid.Parse(userID); err != nil {
		return invalidToken
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return invalidToken
	}

	if !s.tokens.Check(user, token) {
		return invalidToken
	}

	if problems := ValidatePasswordStrength(newPassword, user.Username, user.Email); len(problems) > 0 {
		return model.NewValidationError(map[string][]string{"new_password": problems})
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	slog.Info("password reset completed", slog.String("user_id", user.ID))
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		Data:      map[string]string{},
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
