package router

import (
	"context"
	"strings"

	"github.com/signaldesk-ledger/internal/authz"
	"github.com/signaldesk-ledger/internal/cache"
	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/i18n"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/repository"
	"github.com/signaldesk-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// 管理员上下文键，处理器通过同名键读取
const (
	adminIDKey       = "admin_id"
	adminUsernameKey = "username"
	adminIsSuperKey  = "admin_is_super"
)

// adminIdentity 通过鉴权的管理员快照
type adminIdentity struct {
	ID       uint
	Username string
	IsSuper  bool
}

func abortUnauthorized(c *gin.Context, key string) {
	response.Unauthorized(c, i18n.T(i18n.ResolveLocale(c), key))
	c.Abort()
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func parseAdminClaims(secretKey, tokenString string) (*service.JWTClaims, bool) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &service.JWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil || !token.Valid || claims.AdminID == 0 {
		return nil, false
	}
	return claims, true
}

// issuedAfter 签发时间不早于失效边界（Unix 秒，0 表示不限制）
func issuedAfter(issuedAt *jwt.NumericDate, invalidBefore int64) bool {
	if invalidBefore <= 0 {
		return true
	}
	if issuedAt == nil {
		return false
	}
	return issuedAt.Time.Unix() >= invalidBefore
}

// loadAuthState 先读缓存快照，未命中时回源并回填
func loadAuthState(ctx context.Context, adminID uint, adminRepo repository.AdminRepository) (*cache.AdminAuthState, error) {
	if cached, hit, err := cache.GetAdminAuthState(ctx, adminID); err == nil && hit && cached != nil {
		return cached, nil
	}
	admin, err := adminRepo.GetByID(adminID)
	if err != nil || admin == nil {
		return nil, err
	}
	state := cache.BuildAdminAuthState(admin)
	if err := cache.SetAdminAuthState(ctx, state); err != nil {
		logger.Debugw("admin_auth_state_cache_failed", "admin_id", admin.ID, "error", err)
	}
	return state, nil
}

// JWTAuthMiddleware 管理端 JWT 鉴权：校验签名、禁用状态与令牌版本
func JWTAuthMiddleware(secretKey string, adminRepo repository.AdminRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" || adminRepo == nil {
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		claims, ok := parseAdminClaims(secretKey, tokenString)
		if !ok {
			abortUnauthorized(c, "error.unauthorized")
			return
		}

		state, err := loadAuthState(c.Request.Context(), claims.AdminID, adminRepo)
		if err != nil || state == nil {
			if err != nil {
				logger.Warnw("admin_auth_state_load_failed", "admin_id", claims.AdminID, "error", err)
			}
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if state.Disabled {
			abortUnauthorized(c, "error.admin_disabled")
			return
		}
		if claims.TokenVersion != state.TokenVersion || !issuedAfter(claims.IssuedAt, state.TokenInvalidBefore) {
			abortUnauthorized(c, "error.token_revoked")
			return
		}

		identity := adminIdentity{ID: claims.AdminID, Username: claims.Username, IsSuper: state.IsSuper}
		c.Set(adminIDKey, identity.ID)
		c.Set(adminUsernameKey, identity.Username)
		c.Set(adminIsSuperKey, identity.IsSuper)
		c.Next()
	}
}

// AdminRBACMiddleware 按路由模板与方法执行 casbin 鉴权，超级管理员直接放行
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortUnauthorized(c, "error.authz_unavailable")
			return
		}
		if c.GetBool(adminIsSuperKey) {
			c.Next()
			return
		}
		adminID := c.GetUint(adminIDKey)
		if adminID == 0 {
			abortUnauthorized(c, "error.unauthorized")
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}
		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", adminID,
				"method", c.Request.Method,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, i18n.T(i18n.ResolveLocale(c), "error.forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}
