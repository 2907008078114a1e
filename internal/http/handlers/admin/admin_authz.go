package admin

import (
	"errors"
	"strconv"

	"github.com/signaldesk-ledger/internal/authz"
	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

type authzRoleItem struct {
	Role      authz.Role `json:"role"`
	Label     string     `json:"label"`
	HomeRoute string     `json:"home_route"`
}

// GetAuthzMe 获取当前管理员角色与默认主页
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_unavailable", err)
		return
	}
	isSuper := currentAdminIsSuper(c)
	if isSuper {
		roles = append([]authz.Role{authz.RoleSuperAdmin}, roles...)
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_unavailable", err)
		return
	}

	items := make([]authzRoleItem, 0, len(roles))
	for _, role := range roles {
		items = append(items, authzRoleItem{Role: role, Label: role.Label(), HomeRoute: role.HomeRoute()})
	}
	home := ""
	if profile, ok := authz.ResolveProfile(roles); ok {
		home = profile.HomeRoute
	}

	response.Success(c, gin.H{
		"admin_id":   adminID,
		"is_super":   isSuper,
		"roles":      items,
		"home_route": home,
		"policies":   policies,
	})
}

// ListAuthzRoles 列出全部预置角色
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles := authz.Roles()
	items := make([]authzRoleItem, 0, len(roles))
	for _, role := range roles {
		items = append(items, authzRoleItem{Role: role, Label: role.Label(), HomeRoute: role.HomeRoute()})
	}
	response.Success(c, items)
}

// SetAuthzAdminRoles 覆盖设置管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	roles := make([]authz.Role, 0, len(req.Roles))
	names := make([]interface{}, 0, len(req.Roles))
	for _, raw := range req.Roles {
		role, err := authz.ParseRole(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.validation", nil)
			return
		}
		roles = append(roles, role)
		names = append(names, string(role))
	}

	target, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeServiceUnavailable, "error.resource_unavailable", err)
		return
	}
	if target == nil {
		respondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}

	if err := h.AuthzService.SetAdminRoles(adminID, roles); err != nil {
		if errors.Is(err, authz.ErrUnknownRole) {
			respondError(c, response.CodeBadRequest, "error.validation", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.authz_unavailable", err)
		return
	}

	h.recordAudit(c, service.AuditActionAuthzRoles, "admin", strconv.FormatUint(uint64(adminID), 10), models.JSON{"roles": names})
	requestLog(c).Infow("admin_authz_roles_updated", "target_admin_id", adminID, "roles", names)
	response.Success(c, nil)
}
