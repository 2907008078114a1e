package router

import (
	"net/http"
	"strings"

	"github.com/signaldesk-ledger/internal/cache"
	"github.com/signaldesk-ledger/internal/config"
	adminhandlers "github.com/signaldesk-ledger/internal/http/handlers/admin"
	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/metrics"
	"github.com/signaldesk-ledger/internal/provider"

	"github.com/gin-gonic/gin"
)

const (
	adminBasePath      = "/api/v1/admin"
	catalogPath        = "/authz/permissions/catalog"
	defaultMetricsPath = "/metrics"
)

// routeSpec 管理端路由，path 相对 /api/v1/admin
type routeSpec struct {
	method string
	path   string
	handle gin.HandlerFunc
}

// protectedRoutes 需要 JWT 与 RBAC 的全部管理端路由
func protectedRoutes(h *adminhandlers.Handler) []routeSpec {
	return []routeSpec{
		{http.MethodPut, "/password", h.UpdateAdminPassword},

		// 账本
		{http.MethodGet, "/accounting/overview", h.GetAccountingOverview},
		{http.MethodGet, "/accounting/balance", h.GetAccountingBalance},
		{http.MethodGet, "/accounting/monthly-flow", h.GetAccountingMonthlyFlow},
		{http.MethodGet, "/accounting/transactions", h.ListAccountingTransactions},
		{http.MethodPost, "/accounting/transactions", h.AppendAccountingTransaction},

		// 义务与结算
		{http.MethodGet, "/accounting/pending", h.ListPendingObligations},
		{http.MethodPost, "/accounting/operations/closed", h.RecordClosedOperation},
		{http.MethodPost, "/accounting/refunds", h.SubmitRefund},
		{http.MethodPost, "/accounting/refunds/:id/process", h.ProcessRefund},
		{http.MethodGet, "/accounting/obligations/:id", h.GetObligation},
		{http.MethodPost, "/accounting/obligations/:id/process", h.ProcessObligation},
		{http.MethodPost, "/accounting/obligations/:id/settle", h.SettleObligation},

		// 推广者
		{http.MethodGet, "/affiliates", h.ListAffiliates},
		{http.MethodPost, "/affiliates", h.CreateAffiliate},
		{http.MethodGet, "/affiliates/:id", h.GetAffiliate},
		{http.MethodPost, "/affiliates/:id/vip", h.SetAffiliateVIP},
		{http.MethodPost, "/affiliates/:id/rate", h.ChangeAffiliateRate},
		{http.MethodGet, "/affiliates/:id/rate-history", h.GetAffiliateRateHistory},
		{http.MethodPut, "/affiliates/:id/status", h.UpdateAffiliateStatus},

		// 权限与审计
		{http.MethodGet, "/authz/me", h.GetAuthzMe},
		{http.MethodGet, "/authz/roles", h.ListAuthzRoles},
		{http.MethodPut, "/authz/admins/:id/roles", h.SetAuthzAdminRoles},
		{http.MethodGet, "/audit-logs", h.ListAuditLogs},
	}
}

// SetupRouter 组装中间件与路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(log))
	if cfg.Metrics.Enabled {
		r.Use(MetricsMiddleware())
	}
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = defaultMetricsPath
		}
		r.GET(path, gin.WrapH(metrics.Handler()))
	}

	h := adminhandlers.New(c)
	admin := r.Group(adminBasePath)

	loginRule := RateLimitRule{
		Prefix:        cache.Prefix() + ":rate:admin_login",
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
	}
	admin.POST("/login", RateLimitMiddleware(cache.Client(), loginRule, KeyByIPAndJSONField("username")), h.AdminLogin)
	admin.GET("/captcha/image", h.GetImageCaptcha)

	routes := protectedRoutes(h)
	catalog := buildPermissionCatalog(append(routes, routeSpec{method: http.MethodGet, path: catalogPath}))
	routes = append(routes, routeSpec{http.MethodGet, catalogPath, func(ctx *gin.Context) {
		response.Success(ctx, catalog)
	}})

	authorized := admin.Group("", JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
	for _, route := range routes {
		authorized.Handle(route.method, route.path, route.handle)
	}
	return r
}
