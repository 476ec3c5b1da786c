package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// commonPasswords は使用を禁止する脆弱なパスワードの一覧。
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"1234567890":  {},
	"qwerty123":   {},
	"qwertyuiop":  {},
	"iloveyou":    {},
	"letmein1":    {},
	"welcome1":    {},
	"admin123":    {},
	"abc12345":    {},
	"sunshine":    {},
	"football":    {},
	"baseball":    {},
	"superman":    {},
	"trustno1":    {},
}

// HashPassword はパスワードをbcryptでハッシュ化する。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword はパスワードとハッシュの一致を検証する。
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordStrength はパスワード強度を検証し、違反メッセージの一覧を返す。
// 検証項目: 最小文字数、数字のみ禁止、脆弱パスワード禁止、
// ユーザー名・メールアドレスとの類似禁止。
func ValidatePasswordStrength(password, username, email string) []string {
	var problems []string

	if len(password) < minPasswordLength {
		problems = append(problems, "パスワードは8文字以上で入力してください。")
	}

	if password != "" && isAllNumeric(password) {
		problems = append(problems, "パスワードを数字だけにすることはできません。")
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		problems = append(problems, "このパスワードは一般的すぎるため使用できません。")
	}

	if isSimilarToUserAttribute(password, username, email) {
		problems = append(problems, "パスワードがユーザー情報と類似しすぎています。")
	}

	return problems
}

func isAllNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isSimilarToUserAttribute はパスワードがユーザー名または
// メールアドレスのローカル部を含むかどうかを判定する。
func isSimilarToUserAttribute(password, username, email string) bool {
	lower := strings.ToLower(password)

	if username != "" && len(username) >= 4 {
		if strings.Contains(lower, strings.ToLower(username)) {
			return true
		}
	}

	if email != "" {
		local := email
		if at := strings.Index(email, "@"); at > 0 {
			local = email[:at]
		}
		if len(local) >= 4 && strings.Contains(lower, strings.ToLower(local)) {
			return true
		}
	}

	return false
}
