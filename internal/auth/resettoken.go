package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/recipebox/internal/model"
)

// ResetTokenGenerator はパスワード再設定用のワンタイムトークンを生成・検証する。
// トークンは「base36タイムスタンプ-HMAC署名」の形式。
// 署名対象にパスワードハッシュを含むため、パスワード変更後は
// 発行済みトークンがすべて無効になる。
type ResetTokenGenerator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewResetTokenGenerator はResetTokenGeneratorを生成する。
func NewResetTokenGenerator(secret string, ttl time.Duration) *ResetTokenGenerator {
	return &ResetTokenGenerator{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Make は指定ユーザー向けの再設定トークンを生成する。
func (g *ResetTokenGenerator) Make(user *model.User) string {
	ts := strconv.FormatInt(g.now().Unix(), 36)
	return ts + "-" + g.sign(user, ts)
}

// Check はトークンの署名と有効期限を検証する。
func (g *ResetTokenGenerator) Check(user *model.User, token string) bool {
	if user == nil || token == "" {
		return false
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 {
		return false
	}

	ts, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil {
		return false
	}

	expected := g.sign(user, parts[0])
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return false
	}

	issued := time.Unix(ts, 0)
	if issued.After(g.now()) {
		return false
	}
	if g.now().Sub(issued) > g.ttl {
		return false
	}

	return true
}

func (g *ResetTokenGenerator) sign(user *model.User, ts string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(user.ID))
	mac.Write([]byte(user.PasswordHash))
	mac.Write([]byte(ts))
	return hex.EncodeToString(mac.Sum(nil))
}

// EncodeUserID はユーザーIDをURLセーフな文字列にエンコードする。
func EncodeUserID(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// DecodeUserID はEncodeUserIDでエンコードされた文字列を復号する。
func DecodeUserID(encoded string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid user ID encoding: %w", err)
	}
	return string(b), nil
}
