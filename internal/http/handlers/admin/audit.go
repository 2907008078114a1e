package admin

import (
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// recordAudit 业务提交后写审计，失败不影响响应
func (h *Handler) recordAudit(c *gin.Context, action, targetType, targetID string, detail models.JSON) {
	if h == nil || h.AuditService == nil {
		return
	}
	var operatorID uint
	if value, ok := c.Get("admin_id"); ok {
		operatorID, _ = value.(uint)
	}
	h.AuditService.RecordQuietly(service.AuditRecordInput{
		OperatorAdminID:  operatorID,
		OperatorUsername: c.GetString("username"),
		Action:           action,
		TargetType:       targetType,
		TargetID:         targetID,
		RequestID:        requestID(c),
		Detail:           detail,
	})
}
