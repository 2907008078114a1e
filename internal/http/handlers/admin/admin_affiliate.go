package admin

import (
	"strconv"
	"strings"

	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateAffiliateRequest 创建推广者请求
type CreateAffiliateRequest struct {
	UserID   uint   `json:"user_id" binding:"required"`
	Code     string `json:"code"`
	IsVip    bool   `json:"is_vip"`
	Rate     string `json:"rate"`
	JoinDate string `json:"join_date"`
}

// SetAffiliateVIPRequest VIP 切换请求
type SetAffiliateVIPRequest struct {
	IsVip         bool   `json:"is_vip"`
	EffectiveDate string `json:"effective_date"`
}

// ChangeAffiliateRateRequest 费率调整请求
type ChangeAffiliateRateRequest struct {
	Rate          string `json:"rate" binding:"required"`
	EffectiveDate string `json:"effective_date"`
	Reason        string `json:"reason"`
}

// UpdateAffiliateStatusRequest 状态更新请求
type UpdateAffiliateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func affiliateTargetID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ListAffiliates 推广者列表
func (h *Handler) ListAffiliates(c *gin.Context) {
	page, pageSize := readPagination(c)
	userID, err := parseQueryUint(c, "user_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var isVip *bool
	if raw := strings.TrimSpace(c.Query("is_vip")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		isVip = &parsed
	}

	rows, total, err := h.AffiliateService.List(c.Request.Context(), service.AffiliateListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Code:     strings.TrimSpace(c.Query("code")),
		Status:   strings.TrimSpace(c.Query("status")),
		IsVip:    isVip,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// CreateAffiliate 创建推广者
func (h *Handler) CreateAffiliate(c *gin.Context) {
	var req CreateAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input := service.CreateAffiliateInput{
		UserID: req.UserID,
		Code:   req.Code,
		IsVip:  req.IsVip,
		Actor:  currentActor(c),
	}
	if raw := strings.TrimSpace(req.Rate); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.invalid_rate", nil)
			return
		}
		input.Rate = &rate
	}
	joinDate, err := parseTimeNullable(req.JoinDate)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input.JoinDate = joinDate

	affiliate, err := h.AffiliateService.Create(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.recordAudit(c, service.AuditActionAffiliateCreate, "affiliate", affiliateTargetID(affiliate.ID), models.JSON{
		"user_id": affiliate.UserID,
		"code":    affiliate.AffiliateCode,
		"rate":    affiliate.CommissionRate.String(),
		"is_vip":  affiliate.IsVip,
	})
	response.Success(c, affiliate)
}

// GetAffiliate 推广者详情与收益
func (h *Handler) GetAffiliate(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.AffiliateService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, detail)
}

// SetAffiliateVIP 切换 VIP
func (h *Handler) SetAffiliateVIP(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req SetAffiliateVIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	effective, err := parseTimeNullable(req.EffectiveDate)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	affiliate, err := h.AffiliateService.SetVIP(c.Request.Context(), id, service.SetVIPInput{
		IsVip:         req.IsVip,
		EffectiveDate: effective,
		Actor:         currentActor(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.recordAudit(c, service.AuditActionAffiliateVIP, "affiliate", affiliateTargetID(id), models.JSON{
		"is_vip":         req.IsVip,
		"effective_date": req.EffectiveDate,
	})
	response.Success(c, affiliate)
}

// ChangeAffiliateRate 调整费率
func (h *Handler) ChangeAffiliateRate(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req ChangeAffiliateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(req.Rate))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_rate", nil)
		return
	}
	effective, err := parseTimeNullable(req.EffectiveDate)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	change, err := h.AffiliateService.ChangeRate(c.Request.Context(), id, service.ChangeRateInput{
		Rate:          rate,
		EffectiveDate: effective,
		Reason:        req.Reason,
		Actor:         currentActor(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.recordAudit(c, service.AuditActionAffiliateRate, "affiliate", affiliateTargetID(id), models.JSON{
		"rate":           rate.String(),
		"effective_date": change.EffectiveDate,
		"reason":         req.Reason,
	})
	response.Success(c, change)
}

// GetAffiliateRateHistory 费率历史
func (h *Handler) GetAffiliateRateHistory(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	history, err := h.AffiliateService.RateHistory(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, history)
}

// UpdateAffiliateStatus 更新推广者状态
func (h *Handler) UpdateAffiliateStatus(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req UpdateAffiliateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	affiliate, err := h.AffiliateService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.recordAudit(c, service.AuditActionAffiliateStatus, "affiliate", affiliateTargetID(id), models.JSON{
		"status": affiliate.Status,
	})
	response.Success(c, affiliate)
}
