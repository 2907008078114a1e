package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/money"
	"github.com/signaldesk-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	affiliateCodeLength   = 8
	affiliateCodeMaxRetry = 8
)

var affiliateCodePattern = regexp.MustCompile(`^[A-Z0-9]{4,32}$`)

// AffiliateService 推广者管理服务
type AffiliateService struct {
	db             *gorm.DB
	repo           repository.AffiliateRepository
	obligationRepo repository.ObligationRepository
	rates          CommissionRates
	timeout        time.Duration
	now            func() time.Time
}

// NewAffiliateService 创建推广者服务
func NewAffiliateService(
	db *gorm.DB,
	repo repository.AffiliateRepository,
	obligationRepo repository.ObligationRepository,
	rates CommissionRates,
	cfg config.LedgerConfig,
) *AffiliateService {
	return &AffiliateService{
		db:             db,
		repo:           repo,
		obligationRepo: obligationRepo,
		rates:          rates,
		timeout:        cfg.OperationTimeout(),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *AffiliateService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

// CreateAffiliateInput 创建推广者输入
type CreateAffiliateInput struct {
	UserID   uint
	Code     string
	IsVip    bool
	Rate     *decimal.Decimal
	JoinDate *time.Time
	Actor    string
}

// SetVIPInput VIP 切换输入
type SetVIPInput struct {
	IsVip         bool
	EffectiveDate *time.Time
	Actor         string
}

// ChangeRateInput 费率调整输入
type ChangeRateInput struct {
	Rate          decimal.Decimal
	EffectiveDate *time.Time
	Reason        string
	Actor         string
}

// AffiliateListFilter 推广者列表过滤
type AffiliateListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Code     string
	Status   string
	IsVip    *bool
}

// AffiliateEarnings 推广者收益：已付与待付，按币种分列
type AffiliateEarnings struct {
	AffiliateID  uint            `json:"affiliate_id"`
	Accrued      money.Breakdown `json:"accrued"`
	Pending      money.Breakdown `json:"pending"`
	PaidCount    int64           `json:"paid_count"`
	PendingCount int64           `json:"pending_count"`
}

// AffiliateDetail 推广者详情
type AffiliateDetail struct {
	Affiliate   models.Affiliate  `json:"affiliate"`
	CurrentRate models.Percent    `json:"current_rate"`
	Earnings    AffiliateEarnings `json:"earnings"`
}

// effectiveDay 生效日期截断为 UTC 零点
func effectiveDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeAffiliateCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func normalizeActor(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return constants.ActorSystem
	}
	return actor
}

func validAffiliateStatus(status string) bool {
	switch status {
	case constants.AffiliateStatusActive, constants.AffiliateStatusInactive, constants.AffiliateStatusSuspended:
		return true
	default:
		return false
	}
}

// Create 创建推广者并写入加入日的首条费率
func (s *AffiliateService) Create(ctx context.Context, input CreateAffiliateInput) (*models.Affiliate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if input.UserID == 0 {
		return nil, ErrUserIDRequired
	}
	rate := s.rates.For(input.IsVip)
	if input.Rate != nil {
		rate = *input.Rate
	}
	percent := models.NewPercent(rate)
	if !percent.InRange() {
		return nil, ErrInvalidRate
	}
	code := normalizeAffiliateCode(input.Code)
	if code != "" && !affiliateCodePattern.MatchString(code) {
		return nil, ErrInvalidInput
	}
	joinDate := effectiveDay(s.now())
	if input.JoinDate != nil && !input.JoinDate.IsZero() {
		joinDate = effectiveDay(*input.JoinDate)
	}
	actor := normalizeActor(input.Actor)

	db := s.db.WithContext(ctx)
	existing, err := s.repo.WithTx(db).GetByUserID(input.UserID)
	if err != nil {
		return nil, wrapResource(err)
	}
	if existing != nil {
		return nil, ErrAffiliateExists
	}

	attempts := affiliateCodeMaxRetry
	if code != "" {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		candidate := code
		if candidate == "" {
			generated, genErr := generateAffiliateCode()
			if genErr != nil {
				return nil, wrapResource(genErr)
			}
			candidate = generated
		}
		now := s.now()
		affiliate := &models.Affiliate{
			UserID:         input.UserID,
			AffiliateCode:  candidate,
			Status:         constants.AffiliateStatusActive,
			IsVip:          input.IsVip,
			CommissionRate: percent,
			JoinDate:       joinDate,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Create(affiliate); err != nil {
				return err
			}
			return repo.CreateRateChange(&models.AffiliateRateChange{
				AffiliateID:   affiliate.ID,
				EffectiveDate: joinDate,
				Rate:          percent,
				IsVip:         input.IsVip,
				Reason:        "join",
				ChangedBy:     actor,
				CreatedAt:     now,
			})
		})
		if err == nil {
			logger.Infow("affiliate_created",
				"affiliate_id", affiliate.ID,
				"user_id", affiliate.UserID,
				"code", affiliate.AffiliateCode,
				"rate", percent.String(),
			)
			return affiliate, nil
		}
		if !isUniqueViolation(err) {
			return nil, wrapResource(err)
		}
		// user_id 与推广码共用唯一约束报错，需要回查区分
		again, lookupErr := s.repo.WithTx(db).GetByUserID(input.UserID)
		if lookupErr != nil {
			return nil, wrapResource(lookupErr)
		}
		if again != nil {
			return nil, ErrAffiliateExists
		}
		if code != "" {
			return nil, ErrAffiliateCodeExists
		}
	}
	return nil, ErrAffiliateCodeGenerate
}

// Get 获取推广者详情（含当前费率与收益）
func (s *AffiliateService) Get(ctx context.Context, id uint) (*AffiliateDetail, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	affiliate, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.WithTx(s.db.WithContext(ctx)).ListRateChanges(id)
	if err != nil {
		return nil, wrapResource(err)
	}
	earnings, err := s.Earnings(ctx, id)
	if err != nil {
		return nil, err
	}
	current := models.NewPercent(s.rates.RateAt(affiliate, history, s.now()))
	affiliate.CommissionRate = current
	return &AffiliateDetail{
		Affiliate:   *affiliate,
		CurrentRate: current,
		Earnings:    *earnings,
	}, nil
}

func (s *AffiliateService) load(ctx context.Context, id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, ErrAffiliateNotFound
	}
	affiliate, err := s.repo.WithTx(s.db.WithContext(ctx)).GetByID(id)
	if err != nil {
		return nil, wrapResource(err)
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}
	return affiliate, nil
}

// List 推广者列表
func (s *AffiliateService) List(ctx context.Context, filter AffiliateListFilter) ([]models.Affiliate, int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	status := strings.ToLower(strings.TrimSpace(filter.Status))
	if status != "" && !validAffiliateStatus(status) {
		return nil, 0, ErrAffiliateStatusInvalid
	}
	rows, total, err := s.repo.WithTx(s.db.WithContext(ctx)).List(repository.AffiliateListFilter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		UserID:   filter.UserID,
		Code:     normalizeAffiliateCode(filter.Code),
		Status:   status,
		IsVip:    filter.IsVip,
	})
	if err != nil {
		return nil, 0, wrapResource(err)
	}
	return rows, total, nil
}

// RateHistory 按生效日期升序的费率历史
func (s *AffiliateService) RateHistory(ctx context.Context, id uint) ([]models.AffiliateRateChange, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.repo.WithTx(s.db.WithContext(ctx)).ListRateChanges(id)
	if err != nil {
		return nil, wrapResource(err)
	}
	sortRateHistory(rows)
	return rows, nil
}

// ChangeRate 调整费率，同一生效日只允许一条记录
func (s *AffiliateService) ChangeRate(ctx context.Context, id uint, input ChangeRateInput) (*models.AffiliateRateChange, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	percent := models.NewPercent(input.Rate)
	if !percent.InRange() {
		return nil, ErrInvalidRate
	}
	var change *models.AffiliateRateChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affiliate, err := s.lockAffiliate(tx, id)
		if err != nil {
			return err
		}
		change, err = s.recordRateChange(tx, affiliate, percent, affiliate.IsVip, input.EffectiveDate, input.Reason, input.Actor)
		if err != nil {
			return err
		}
		return s.syncCurrentRate(tx, affiliate, nil)
	})
	if err != nil {
		return nil, wrapResource(err)
	}
	logger.Infow("affiliate_rate_changed",
		"affiliate_id", id,
		"rate", percent.String(),
		"effective_date", change.EffectiveDate.Format("2006-01-02"),
		"actor", change.ChangedBy,
	)
	return change, nil
}

// SetVIP 切换 VIP，并从生效日起改用对应的配置费率
func (s *AffiliateService) SetVIP(ctx context.Context, id uint, input SetVIPInput) (*models.Affiliate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var affiliate *models.Affiliate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockAffiliate(tx, id)
		if err != nil {
			return err
		}
		affiliate = locked
		reason := "vip_off"
		if input.IsVip {
			reason = "vip_on"
		}
		percent := models.NewPercent(s.rates.For(input.IsVip))
		if _, err := s.recordRateChange(tx, affiliate, percent, input.IsVip, input.EffectiveDate, reason, input.Actor); err != nil {
			return err
		}
		vip := input.IsVip
		return s.syncCurrentRate(tx, affiliate, &vip)
	})
	if err != nil {
		return nil, wrapResource(err)
	}
	logger.Infow("affiliate_vip_changed", "affiliate_id", id, "is_vip", input.IsVip, "actor", normalizeActor(input.Actor))
	return affiliate, nil
}

func (s *AffiliateService) lockAffiliate(tx *gorm.DB, id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, ErrAffiliateNotFound
	}
	affiliate, err := s.repo.WithTx(tx).GetByIDForUpdate(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}
	return affiliate, nil
}

func (s *AffiliateService) recordRateChange(
	tx *gorm.DB,
	affiliate *models.Affiliate,
	percent models.Percent,
	isVip bool,
	effective *time.Time,
	reason, actor string,
) (*models.AffiliateRateChange, error) {
	day := effectiveDay(s.now())
	if effective != nil && !effective.IsZero() {
		day = effectiveDay(*effective)
	}
	if day.Before(effectiveDay(affiliate.JoinDate)) {
		return nil, ErrInvalidInput
	}
	// 已平仓的操作按当日费率计算，不允许改写过去的费率
	if day.Before(effectiveDay(s.now())) {
		return nil, ErrRateBackdated
	}
	repo := s.repo.WithTx(tx)
	history, err := repo.ListRateChanges(affiliate.ID)
	if err != nil {
		return nil, err
	}
	for _, item := range history {
		if effectiveDay(item.EffectiveDate).Equal(day) {
			return nil, ErrRateDateConflict
		}
	}
	change := &models.AffiliateRateChange{
		AffiliateID:   affiliate.ID,
		EffectiveDate: day,
		Rate:          percent,
		IsVip:         isVip,
		Reason:        strings.TrimSpace(reason),
		ChangedBy:     normalizeActor(actor),
		CreatedAt:     s.now(),
	}
	if err := repo.CreateRateChange(change); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrRateDateConflict
		}
		return nil, err
	}
	return change, nil
}

// syncCurrentRate commission_rate 始终等于当前生效的费率
func (s *AffiliateService) syncCurrentRate(tx *gorm.DB, affiliate *models.Affiliate, isVip *bool) error {
	repo := s.repo.WithTx(tx)
	history, err := repo.ListRateChanges(affiliate.ID)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"updated_at": s.now()}
	if isVip != nil {
		affiliate.IsVip = *isVip
		updates["is_vip"] = *isVip
	}
	current := models.NewPercent(s.rates.RateAt(affiliate, history, s.now()))
	updates["commission_rate"] = current
	if err := repo.UpdateFields(affiliate.ID, updates); err != nil {
		return err
	}
	affiliate.CommissionRate = current
	return nil
}

// UpdateStatus 更新推广者状态
func (s *AffiliateService) UpdateStatus(ctx context.Context, id uint, rawStatus string) (*models.Affiliate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	status := strings.ToLower(strings.TrimSpace(rawStatus))
	if !validAffiliateStatus(status) {
		return nil, ErrAffiliateStatusInvalid
	}
	affiliate, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if affiliate.Status == status {
		return affiliate, nil
	}
	now := s.now()
	if err := s.repo.WithTx(s.db.WithContext(ctx)).UpdateFields(id, map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}); err != nil {
		return nil, wrapResource(err)
	}
	affiliate.Status = status
	affiliate.UpdatedAt = now
	return affiliate, nil
}

// Earnings 已付佣金与待付佣金，按币种分列
func (s *AffiliateService) Earnings(ctx context.Context, id uint) (*AffiliateEarnings, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if id == 0 {
		return nil, ErrAffiliateNotFound
	}
	repo := s.obligationRepo.WithTx(s.db.WithContext(ctx))
	earnings := &AffiliateEarnings{
		AffiliateID: id,
		Accrued:     money.NewBreakdown(),
		Pending:     money.NewBreakdown(),
	}
	paid, err := repo.SumByCurrency(repository.ObligationSumFilter{
		Kind:        constants.ObligationKindCommission,
		Statuses:    []string{constants.ObligationStatusPaid},
		AffiliateID: id,
	})
	if err != nil {
		return nil, wrapResource(err)
	}
	for _, row := range paid {
		earnings.Accrued.Add(money.New(row.Total, money.Currency(row.Currency)))
		earnings.PaidCount += row.Count
	}
	pending, err := repo.SumByCurrency(repository.ObligationSumFilter{
		Kind:        constants.ObligationKindCommission,
		Statuses:    []string{constants.ObligationStatusPending, constants.ObligationStatusApproved},
		AffiliateID: id,
	})
	if err != nil {
		return nil, wrapResource(err)
	}
	for _, row := range pending {
		earnings.Pending.Add(money.New(row.Total, money.Currency(row.Currency)))
		earnings.PendingCount += row.Count
	}
	return earnings, nil
}

func generateAffiliateCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(affiliateCodeLength)
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < affiliateCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
