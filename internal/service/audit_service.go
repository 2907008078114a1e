package service

import (
	"strings"
	"time"

	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/repository"
)

// 审计动作
const (
	AuditActionLedgerAppend       = "ledger.append"
	AuditActionObligationDecide   = "obligation.decide"
	AuditActionObligationSettle   = "obligation.settle"
	AuditActionRefundSubmit       = "refund.submit"
	AuditActionOperationClosed    = "operation.closed"
	AuditActionAffiliateCreate    = "affiliate.create"
	AuditActionAffiliateRate      = "affiliate.rate"
	AuditActionAffiliateVIP       = "affiliate.vip"
	AuditActionAffiliateStatus    = "affiliate.status"
	AuditActionAdminLogin         = "admin.login"
	AuditActionAdminPasswordReset = "admin.password"
	AuditActionAuthzRoles         = "authz.roles"
)

// AuditRecordInput 审计记录输入
type AuditRecordInput struct {
	OperatorAdminID  uint
	OperatorUsername string
	Action           string
	TargetType       string
	TargetID         string
	RequestID        string
	Detail           models.JSON
}

// AuditService 资金操作审计服务
type AuditService struct {
	repo repository.AuditLogRepository
}

// NewAuditService 创建审计服务
func NewAuditService(repo repository.AuditLogRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Record 记录审计日志，缺少操作人或动作时忽略
func (s *AuditService) Record(input AuditRecordInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if input.OperatorAdminID == 0 {
		return nil
	}
	if strings.TrimSpace(input.Action) == "" {
		return nil
	}

	item := &models.AuditLog{
		OperatorAdminID:  input.OperatorAdminID,
		OperatorUsername: strings.TrimSpace(input.OperatorUsername),
		Action:           strings.TrimSpace(input.Action),
		TargetType:       strings.TrimSpace(input.TargetType),
		TargetID:         strings.TrimSpace(input.TargetID),
		RequestID:        strings.TrimSpace(input.RequestID),
		DetailJSON:       input.Detail,
		CreatedAt:        time.Now().UTC(),
	}
	return s.repo.Create(item)
}

// RecordQuietly 业务提交后记录审计，失败只写日志
func (s *AuditService) RecordQuietly(input AuditRecordInput) {
	if err := s.Record(input); err != nil {
		logger.Warnw("audit_log_record_failed",
			"action", input.Action,
			"target_type", input.TargetType,
			"target_id", input.TargetID,
			"request_id", input.RequestID,
			"error", err,
		)
	}
}

// ListForAdmin 管理端查询审计日志
func (s *AuditService) ListForAdmin(filter repository.AuditLogListFilter) ([]models.AuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuditLog{}, 0, nil
	}
	rows, total, err := s.repo.ListAdmin(filter)
	if err != nil {
		return nil, 0, wrapResource(err)
	}
	return rows, total, nil
}
