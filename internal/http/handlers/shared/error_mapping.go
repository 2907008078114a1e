package shared

import (
	"errors"

	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/ledger"
	"github.com/signaldesk-ledger/internal/money"
	"github.com/signaldesk-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 业务错误到接口响应的映射。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// 按顺序匹配，先具体后通用
var serviceErrorRules = []MappedError{
	{Target: service.ErrLedgerRejected, Code: response.CodeUnprocessable, Key: "error.ledger_rejected"},
	{Target: service.ErrObligationNotApproved, Code: response.CodeUnprocessable, Key: "error.not_approved"},
	{Target: service.ErrAlreadySettled, Code: response.CodeConflict, Key: "error.already_settled"},
	{Target: service.ErrDuplicateSource, Code: response.CodeConflict, Key: "error.duplicate_source"},
	{Target: service.ErrAffiliateExists, Code: response.CodeConflict, Key: "error.affiliate_exists"},
	{Target: service.ErrAffiliateCodeExists, Code: response.CodeConflict, Key: "error.affiliate_code_exists"},
	{Target: service.ErrRateDateConflict, Code: response.CodeConflict, Key: "error.rate_date_conflict"},
	{Target: service.ErrAffiliateNotFound, Code: response.CodeNotFound, Key: "error.affiliate_not_found"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.not_found"},
	{Target: service.ErrInvalidCurrency, Code: response.CodeBadRequest, Key: "error.invalid_currency"},
	{Target: money.ErrInvalidCurrency, Code: response.CodeBadRequest, Key: "error.invalid_currency"},
	{Target: money.ErrInvalidAmount, Code: response.CodeBadRequest, Key: "error.invalid_amount"},
	{Target: money.ErrAmountOverflow, Code: response.CodeBadRequest, Key: "error.invalid_amount"},
	{Target: service.ErrNonPositiveAmount, Code: response.CodeBadRequest, Key: "error.non_positive_amount"},
	{Target: service.ErrInvalidTxType, Code: response.CodeBadRequest, Key: "error.invalid_tx_type"},
	{Target: service.ErrInvalidScope, Code: response.CodeBadRequest, Key: "error.invalid_scope"},
	{Target: ledger.ErrInvalidScope, Code: response.CodeBadRequest, Key: "error.invalid_scope"},
	{Target: service.ErrInvalidDecision, Code: response.CodeBadRequest, Key: "error.invalid_decision"},
	{Target: service.ErrInvalidRate, Code: response.CodeBadRequest, Key: "error.invalid_rate"},
	{Target: service.ErrRateBackdated, Code: response.CodeBadRequest, Key: "error.rate_backdated"},
	{Target: service.ErrAffiliateStatusInvalid, Code: response.CodeBadRequest, Key: "error.invalid_status"},
	{Target: service.ErrUserIDRequired, Code: response.CodeBadRequest, Key: "error.user_id_required"},
	{Target: service.ErrOperationIDRequired, Code: response.CodeBadRequest, Key: "error.operation_id_required"},
}

// StatusForServiceError 返回业务状态码与文案 key。
func StatusForServiceError(err error) (int, string) {
	for _, rule := range serviceErrorRules {
		if errors.Is(err, rule.Target) {
			return rule.Code, rule.Key
		}
	}
	switch service.KindOf(err) {
	case service.KindValidation:
		return response.CodeBadRequest, "error.validation"
	case service.KindConflict:
		return response.CodeConflict, "error.conflict"
	case service.KindPolicy:
		return response.CodeUnprocessable, "error.policy"
	case service.KindNotFound:
		return response.CodeNotFound, "error.not_found"
	case service.KindResource:
		return response.CodeServiceUnavailable, "error.resource_unavailable"
	default:
		return response.CodeInternal, "error.internal"
	}
}

// RespondServiceError 返回 service 错误，资源类与未知错误记录日志。
func RespondServiceError(c *gin.Context, err error) {
	code, key := StatusForServiceError(err)
	var trackerErr *service.TrackerError
	if errors.As(err, &trackerErr) && trackerErr.ObligationID != 0 {
		RequestLog(c).Debugw("handler_obligation_conflict", "obligation_id", trackerErr.ObligationID, "reason", trackerErr.Reason)
		RespondErrorWithData(c, code, key, gin.H{
			"obligation_id": trackerErr.ObligationID,
			"status":        trackerErr.Status,
			"reason":        trackerErr.Reason,
		})
		return
	}
	if code >= response.CodeInternal {
		RespondError(c, code, key, err)
		return
	}
	RespondError(c, code, key, nil)
}
