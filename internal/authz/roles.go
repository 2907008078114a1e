package authz

import (
	"fmt"
	"strings"
)

// Role 后台角色，仅限下列取值
type Role string

const (
	RoleSuperAdmin       Role = "super_admin"
	RoleFinance          Role = "finance"
	RoleSupport          Role = "support"
	RoleAuditor          Role = "auditor"
	RoleAffiliateManager Role = "affiliate_manager"
)

// RoleProfile 角色展示与授权配置
type RoleProfile struct {
	Role      Role     `json:"role"`
	Label     string   `json:"label"`
	HomeRoute string   `json:"home_route"`
	Inherits  []Role   `json:"-"`
	Policies  []Policy `json:"-"`
}

// allRoles 按优先级排列，多角色时取第一个命中的主页
var allRoles = []Role{
	RoleSuperAdmin,
	RoleFinance,
	RoleAffiliateManager,
	RoleSupport,
	RoleAuditor,
}

var roleProfiles = map[Role]RoleProfile{
	RoleSuperAdmin: {
		Role:      RoleSuperAdmin,
		Label:     "Super Admin",
		HomeRoute: "/dashboard",
		Policies: []Policy{
			{Object: "/admin/*", Action: "*"},
		},
	},
	RoleFinance: {
		Role:      RoleFinance,
		Label:     "Finance",
		HomeRoute: "/accounting/pending",
		Inherits:  []Role{RoleAuditor},
		Policies: []Policy{
			{Object: "/admin/accounting/transactions", Action: "POST"},
			{Object: "/admin/accounting/operations/closed", Action: "POST"},
			{Object: "/admin/accounting/refunds", Action: "POST"},
			{Object: "/admin/accounting/refunds/:id/process", Action: "POST"},
			{Object: "/admin/accounting/obligations/:id/process", Action: "POST"},
			{Object: "/admin/accounting/obligations/:id/settle", Action: "POST"},
		},
	},
	RoleSupport: {
		Role:      RoleSupport,
		Label:     "Support",
		HomeRoute: "/accounting/refunds",
		Inherits:  []Role{RoleAuditor},
		Policies: []Policy{
			{Object: "/admin/accounting/refunds", Action: "POST"},
		},
	},
	RoleAuditor: {
		Role:      RoleAuditor,
		Label:     "Auditor",
		HomeRoute: "/accounting/overview",
		Policies: []Policy{
			{Object: "/admin/accounting/*", Action: "GET"},
			{Object: "/admin/affiliates", Action: "GET"},
			{Object: "/admin/affiliates/*", Action: "GET"},
			{Object: "/admin/audit-logs", Action: "GET"},
			{Object: "/admin/authz/me", Action: "GET"},
		},
	},
	RoleAffiliateManager: {
		Role:      RoleAffiliateManager,
		Label:     "Affiliate Manager",
		HomeRoute: "/affiliates",
		Inherits:  []Role{RoleAuditor},
		Policies: []Policy{
			{Object: "/admin/affiliates", Action: "POST"},
			{Object: "/admin/affiliates/:id/vip", Action: "POST"},
			{Object: "/admin/affiliates/:id/rate", Action: "POST"},
			{Object: "/admin/affiliates/:id/status", Action: "PUT"},
		},
	},
}

// ErrUnknownRole 未定义的角色
var ErrUnknownRole = fmt.Errorf("unknown role")

// ParseRole 解析角色字符串，兼容 role: 前缀
func ParseRole(raw string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.TrimPrefix(normalized, rolePrefix)
	role := Role(normalized)
	if _, ok := roleProfiles[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// Roles 返回全部角色
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Profile 返回角色配置
func (r Role) Profile() (RoleProfile, bool) {
	profile, ok := roleProfiles[r]
	return profile, ok
}

// Label 角色展示名
func (r Role) Label() string {
	if profile, ok := roleProfiles[r]; ok {
		return profile.Label
	}
	return string(r)
}

// HomeRoute 角色默认主页
func (r Role) HomeRoute() string {
	if profile, ok := roleProfiles[r]; ok {
		return profile.HomeRoute
	}
	return ""
}

func (r Role) subject() string {
	return rolePrefix + string(r)
}

// ResolveProfile 多角色时按优先级返回主角色配置
func ResolveProfile(roles []Role) (RoleProfile, bool) {
	held := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		held[role] = struct{}{}
	}
	for _, role := range allRoles {
		if _, ok := held[role]; ok {
			return roleProfiles[role], true
		}
	}
	return RoleProfile{}, false
}
