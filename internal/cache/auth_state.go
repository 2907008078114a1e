package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/signaldesk-ledger/internal/models"
)

const authStateTTL = 10 * time.Minute

// AdminAuthState 鉴权中间件读取的管理员快照
type AdminAuthState struct {
	AdminID            uint   `json:"admin_id"`
	Username           string `json:"username"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
	IsSuper            bool   `json:"is_super"`
	Disabled           bool   `json:"disabled"`
	CachedAt           int64  `json:"cached_at"`
}

func authStateKey(adminID uint) string {
	return "auth:admin:" + strconv.FormatUint(uint64(adminID), 10)
}

// BuildAdminAuthState 由管理员记录生成快照
func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	var invalidBefore int64
	if admin.TokenInvalidBefore != nil {
		invalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return &AdminAuthState{
		AdminID:            admin.ID,
		Username:           admin.Username,
		TokenVersion:       admin.TokenVersion,
		TokenInvalidBefore: invalidBefore,
		IsSuper:            admin.IsSuper,
		Disabled:           admin.Disabled,
		CachedAt:           time.Now().Unix(),
	}
}

// GetAdminAuthState 读取快照
func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	state := &AdminAuthState{}
	hit, err := GetJSON(ctx, authStateKey(adminID), state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return state, true, nil
}

// SetAdminAuthState 写入快照
func SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, authStateKey(state.AdminID), state, authStateTTL)
}
