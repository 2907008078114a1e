package service

import (
	"unicode"
	"unicode/utf8"

	"github.com/signaldesk-ledger/internal/config"
)

// PasswordPolicyError 密码不满足策略，Key/Args 用于本地化提示
type PasswordPolicyError struct {
	key  string
	args []interface{}
}

func (e *PasswordPolicyError) Error() string        { return e.key }
func (e *PasswordPolicyError) Is(target error) bool { return target == ErrWeakPassword }

// Key 提示文案键
func (e *PasswordPolicyError) Key() string { return e.key }

// Args 提示文案参数
func (e *PasswordPolicyError) Args() []interface{} { return e.args }

type charClass struct {
	required bool
	key      string
	match    func(rune) bool
}

func checkPasswordPolicy(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength > 0 && utf8.RuneCountInString(password) < policy.MinLength {
		return &PasswordPolicyError{key: "error.password_min_length", args: []interface{}{policy.MinLength}}
	}
	classes := []charClass{
		{policy.RequireUpper, "error.password_require_upper", unicode.IsUpper},
		{policy.RequireLower, "error.password_require_lower", unicode.IsLower},
		{policy.RequireNumber, "error.password_require_number", unicode.IsDigit},
		{policy.RequireSpecial, "error.password_require_special", isSpecialRune},
	}
	for _, class := range classes {
		if class.required && !containsRune(password, class.match) {
			return &PasswordPolicyError{key: class.key}
		}
	}
	return nil
}

func isSpecialRune(r rune) bool {
	return !unicode.IsUpper(r) && !unicode.IsLower(r) && !unicode.IsDigit(r)
}

func containsRune(s string, match func(rune) bool) bool {
	for _, r := range s {
		if match(r) {
			return true
		}
	}
	return false
}
