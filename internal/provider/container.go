package provider

import (
	"github.com/signaldesk-ledger/internal/authz"
	"github.com/signaldesk-ledger/internal/cache"
	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/queue"
	"github.com/signaldesk-ledger/internal/repository"
	"github.com/signaldesk-ledger/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Locker      cache.Locker

	// Repositories
	AdminRepo      repository.AdminRepository
	AffiliateRepo  repository.AffiliateRepository
	LedgerRepo     repository.LedgerRepository
	ObligationRepo repository.ObligationRepository
	AuditLogRepo   repository.AuditLogRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	CaptchaService      *service.CaptchaService
	AuditService        *service.AuditService
	LedgerService       *service.LedgerService
	SettlementProcessor *service.SettlementProcessor
	ObligationTracker   *service.ObligationTracker
	CommissionEngine    *service.CommissionEngine
	AffiliateService    *service.AffiliateService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Locker:      cache.NewLocker(),
	}

	c.initRepositories(models.DB)
	c.initServices(models.DB)

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.AdminRepo = repository.NewAdminRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.LedgerRepo = repository.NewLedgerRepository(db)
	c.ObligationRepo = repository.NewObligationRepository(db)
	c.AuditLogRepo = repository.NewAuditLogRepository(db)
}

func (c *Container) initServices(db *gorm.DB) {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	ledgerCfg := c.Config.Ledger
	rates := service.CommissionRatesFromConfig(c.Config.Commission)

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuditService = service.NewAuditService(c.AuditLogRepo)

	c.LedgerService = service.NewLedgerService(db, c.LedgerRepo, c.ObligationRepo, ledgerCfg, c.QueueClient)
	c.SettlementProcessor = service.NewSettlementProcessor(db, c.ObligationRepo, c.LedgerRepo, c.LedgerService, c.Locker, ledgerCfg, c.QueueClient)
	c.ObligationTracker = service.NewObligationTracker(db, c.ObligationRepo, c.LedgerService, c.SettlementProcessor, c.Locker, ledgerCfg)
	c.CommissionEngine = service.NewCommissionEngine(db, c.AffiliateRepo, c.ObligationRepo, c.ObligationTracker, rates)
	c.AffiliateService = service.NewAffiliateService(db, c.AffiliateRepo, c.ObligationRepo, rates, ledgerCfg)
}
