package admin

import (
	"strings"

	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs 获取资金操作审计日志
func (h *Handler) ListAuditLogs(c *gin.Context) {
	page, pageSize := readPagination(c)

	operatorAdminID, err := parseQueryUint(c, "operator_admin_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	items, total, err := h.AuditService.ListForAdmin(repository.AuditLogListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: operatorAdminID,
		Action:          strings.TrimSpace(c.Query("action")),
		TargetType:      strings.TrimSpace(c.Query("target_type")),
		TargetID:        strings.TrimSpace(c.Query("target_id")),
		CreatedFrom:     createdFrom,
		CreatedTo:       createdTo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}
