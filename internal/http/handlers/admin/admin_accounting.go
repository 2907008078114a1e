package admin

import (
	"strconv"
	"strings"

	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/ledger"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/money"
	"github.com/signaldesk-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// AppendTransactionRequest 手工记账请求
type AppendTransactionRequest struct {
	Type               string `json:"type" binding:"required"`
	Amount             string `json:"amount" binding:"required"`
	Currency           string `json:"currency" binding:"required"`
	Description        string `json:"description"`
	RelatedUserID      *uint  `json:"related_user_id"`
	RelatedAffiliateID *uint  `json:"related_affiliate_id"`
	RelatedOperationID string `json:"related_operation_id"`
}

// ClosedOperationRequest 平仓事件请求
type ClosedOperationRequest struct {
	OperationID          string `json:"operation_id" binding:"required"`
	UserID               uint   `json:"user_id" binding:"required"`
	ReferringAffiliateID *uint  `json:"referring_affiliate_id"`
	Profit               string `json:"profit" binding:"required"`
	Currency             string `json:"currency" binding:"required"`
	ClosedAt             string `json:"closed_at" binding:"required"`
}

// RefundRequest 退款申请请求
type RefundRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	UserID    uint   `json:"user_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Currency  string `json:"currency" binding:"required"`
	Reason    string `json:"reason"`
}

// ProcessObligationRequest 审核请求
type ProcessObligationRequest struct {
	Action string `json:"action" binding:"required"`
}

func parseMoney(amount, currency string) (money.Money, error) {
	cur, err := money.ParseCurrency(currency)
	if err != nil {
		return money.Money{}, err
	}
	return money.Parse(amount, cur)
}

// GetAccountingOverview 财务概览
func (h *Handler) GetAccountingOverview(c *gin.Context) {
	overview, err := h.LedgerService.Overview(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, overview)
}

// GetAccountingBalance 作用域余额
func (h *Handler) GetAccountingBalance(c *gin.Context) {
	scope, err := ledger.ParseScope(c.Query("scope"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	cur, err := money.ParseCurrency(c.Query("currency"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	asOf, err := parseTimeNullable(c.Query("as_of"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	balance, err := h.LedgerService.Balance(c.Request.Context(), service.BalanceQuery{
		Scope:    scope,
		Currency: cur,
		AsOf:     asOf,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, balance)
}

// GetAccountingMonthlyFlow 月度流水
func (h *Handler) GetAccountingMonthlyFlow(c *gin.Context) {
	scope, err := ledger.ParseScope(c.Query("scope"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	from, err := parseTimeNullable(c.Query("from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	to, err := parseTimeNullable(c.Query("to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	rows, err := h.LedgerService.MonthlyFlow(c.Request.Context(), service.MonthlyFlowQuery{
		Scope:    scope,
		Currency: strings.TrimSpace(c.Query("currency")),
		From:     from,
		To:       to,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rows)
}

// ListAccountingTransactions 最近交易
func (h *Handler) ListAccountingTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	scope, err := ledger.ParseScope(c.Query("scope"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	rows, err := h.LedgerService.ListRecent(c.Request.Context(), service.RecentQuery{
		Limit:    limit,
		Type:     strings.TrimSpace(c.Query("type")),
		Currency: strings.TrimSpace(c.Query("currency")),
		Scope:    scope,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rows)
}

// AppendAccountingTransaction 手工记账
func (h *Handler) AppendAccountingTransaction(c *gin.Context) {
	var req AppendTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	amount, err := parseMoney(req.Amount, req.Currency)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	txID, err := h.LedgerService.Append(c.Request.Context(), service.AppendTransactionInput{
		Type:               strings.ToLower(strings.TrimSpace(req.Type)),
		Amount:             amount,
		Description:        req.Description,
		RelatedUserID:      req.RelatedUserID,
		RelatedAffiliateID: req.RelatedAffiliateID,
		RelatedOperationID: req.RelatedOperationID,
		PostedBy:           currentActor(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.recordAudit(c, service.AuditActionLedgerAppend, "ledger_transaction", txID, models.JSON{
		"type":     req.Type,
		"amount":   amount.StringFixed(),
		"currency": string(amount.Currency),
	})
	response.Success(c, gin.H{"tx_id": txID})
}

// ListPendingObligations 待处理义务
func (h *Handler) ListPendingObligations(c *gin.Context) {
	page, pageSize := readPagination(c)
	affiliateID, err := parseQueryUint(c, "affiliate_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	userID, err := parseQueryUint(c, "user_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	rows, total, err := h.ObligationTracker.ListPending(c.Request.Context(), service.PendingFilter{
		Kind:        strings.TrimSpace(c.Query("kind")),
		Status:      strings.TrimSpace(c.Query("status")),
		AffiliateID: affiliateID,
		UserID:      userID,
		Currency:    strings.TrimSpace(c.Query("currency")),
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// RecordClosedOperation 接收平仓事件并计算佣金
func (h *Handler) RecordClosedOperation(c *gin.Context) {
	var req ClosedOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	profit, err := parseMoney(req.Profit, req.Currency)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	closedAt, err := parseTimeNullable(req.ClosedAt)
	if err != nil || closedAt == nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	view, created, err := h.CommissionEngine.RecordClosedOperation(c.Request.Context(), service.ClosedOperation{
		ID:                   req.OperationID,
		UserID:               req.UserID,
		ReferringAffiliateID: req.ReferringAffiliateID,
		Profit:               profit,
		ClosedAt:             closedAt.UTC(),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if created {
		h.recordAudit(c, service.AuditActionOperationClosed, "obligation", strconv.FormatUint(uint64(view.ID), 10), models.JSON{
			"operation_id": req.OperationID,
			"owed":         view.Owed.StringFixed(),
			"currency":     string(view.Owed.Currency),
		})
	}
	response.Success(c, gin.H{
		"created":    created,
		"obligation": view,
	})
}

// SubmitRefund 提交退款申请
func (h *Handler) SubmitRefund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	amount, err := parseMoney(req.Amount, req.Currency)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, err := h.ObligationTracker.SubmitRefund(c.Request.Context(), service.RefundRequestInput{
		RequestID: req.RequestID,
		UserID:    req.UserID,
		Amount:    amount,
		Reason:    req.Reason,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.recordAudit(c, service.AuditActionRefundSubmit, "obligation", strconv.FormatUint(uint64(view.ID), 10), models.JSON{
		"request_id": req.RequestID,
		"amount":     amount.StringFixed(),
		"currency":   string(amount.Currency),
	})
	response.Success(c, view)
}

// ProcessRefund 审核退款
func (h *Handler) ProcessRefund(c *gin.Context) {
	h.processObligation(c, constants.ObligationKindRefund)
}

// ProcessObligation 审核任意义务
func (h *Handler) ProcessObligation(c *gin.Context) {
	h.processObligation(c, "")
}

func (h *Handler) processObligation(c *gin.Context, kind string) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req ProcessObligationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if kind != "" {
		current, err := h.ObligationTracker.Get(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if current.Kind != kind {
			respondError(c, response.CodeNotFound, "error.obligation_not_found", nil)
			return
		}
	}

	result, err := h.ObligationTracker.Decide(c.Request.Context(), id, req.Action, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.recordAudit(c, service.AuditActionObligationDecide, "obligation", strconv.FormatUint(uint64(id), 10), models.JSON{
		"action": strings.ToLower(strings.TrimSpace(req.Action)),
		"status": result.Obligation.Status,
		"tx_id":  result.TxID,
	})
	response.Success(c, result)
}

// SettleObligation 结算已批准义务，重复调用返回同一交易号
func (h *Handler) SettleObligation(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	txID, err := h.SettlementProcessor.Settle(c.Request.Context(), id, currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.recordAudit(c, service.AuditActionObligationSettle, "obligation", strconv.FormatUint(uint64(id), 10), models.JSON{
		"tx_id": txID,
	})
	response.Success(c, gin.H{"obligation_id": id, "tx_id": txID})
}

// GetObligation 义务详情
func (h *Handler) GetObligation(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	view, err := h.ObligationTracker.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, view)
}
