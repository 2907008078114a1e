package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/signaldesk-ledger/internal/constants"
)

// ErrInvalidScope 作用域格式错误
var ErrInvalidScope = errors.New("invalid ledger scope")

// Scope 余额作用域：平台、单个用户或单个推广者
type Scope struct {
	Kind string
	ID   uint
}

// PlatformScope 平台全局作用域
func PlatformScope() Scope {
	return Scope{Kind: constants.LedgerScopePlatform}
}

// UserScope 用户作用域
func UserScope(id uint) Scope {
	return Scope{Kind: constants.LedgerScopeUser, ID: id}
}

// AffiliateScope 推广者作用域
func AffiliateScope(id uint) Scope {
	return Scope{Kind: constants.LedgerScopeAffiliate, ID: id}
}

// ParseScope 解析 platform / user:<id> / affiliate:<id>，空串视为 platform
func ParseScope(raw string) (Scope, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" || text == constants.LedgerScopePlatform {
		return PlatformScope(), nil
	}
	kind, idText, ok := strings.Cut(text, ":")
	if !ok {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(idText), 10, 64)
	if err != nil || id == 0 {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
	switch kind {
	case constants.LedgerScopeUser:
		return UserScope(uint(id)), nil
	case constants.LedgerScopeAffiliate:
		return AffiliateScope(uint(id)), nil
	default:
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
}

// IsPlatform 是否平台作用域
func (s Scope) IsPlatform() bool {
	return s.Kind == "" || s.Kind == constants.LedgerScopePlatform
}

func (s Scope) String() string {
	if s.IsPlatform() {
		return constants.LedgerScopePlatform
	}
	return s.Kind + ":" + strconv.FormatUint(uint64(s.ID), 10)
}

// Matches 判断交易关联字段是否落在作用域内
func (s Scope) Matches(userID, affiliateID *uint) bool {
	switch s.Kind {
	case "", constants.LedgerScopePlatform:
		return true
	case constants.LedgerScopeUser:
		return userID != nil && *userID == s.ID
	case constants.LedgerScopeAffiliate:
		return affiliateID != nil && *affiliateID == s.ID
	default:
		return false
	}
}
