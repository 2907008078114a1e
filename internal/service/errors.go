package service

import (
	"errors"
	"fmt"
)

// 通用错误
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrResourceUnavailable = errors.New("resource unavailable")
)

// 认证相关错误
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrWeakPassword         = errors.New("weak password")
	ErrAdminDisabled        = errors.New("admin disabled")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
)

// 账本错误
var (
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrInvalidTxType     = errors.New("invalid transaction type")
	ErrInvalidScope      = errors.New("invalid ledger scope")
)

// 义务流转错误
var (
	ErrDuplicateSource       = errors.New("duplicate source operation")
	ErrAlreadySettled        = errors.New("obligation already settled")
	ErrInvalidDecision       = errors.New("invalid decision")
	ErrObligationNotApproved = errors.New("obligation not approved")
	ErrLedgerRejected        = errors.New("ledger rejected settlement")
	ErrOperationIDRequired   = errors.New("operation id required")
)

// 推广者错误
var (
	ErrAffiliateNotFound      = errors.New("affiliate not found")
	ErrAffiliateExists        = errors.New("affiliate already exists for user")
	ErrAffiliateCodeExists    = errors.New("affiliate code already exists")
	ErrAffiliateCodeGenerate  = errors.New("affiliate code generate failed")
	ErrAffiliateStatusInvalid = errors.New("affiliate status invalid")
	ErrInvalidRate            = errors.New("commission rate out of range")
	ErrRateDateConflict       = errors.New("rate change already exists for effective date")
	ErrRateBackdated          = errors.New("rate change effective date is in the past")
	ErrUserIDRequired         = errors.New("user id required")
)

// ErrorKind 错误分类
type ErrorKind string

const (
	KindUnknown    ErrorKind = ""
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindResource   ErrorKind = "resource"
	KindPolicy     ErrorKind = "policy"
	KindNotFound   ErrorKind = "not_found"
)

// 按顺序匹配，结算错误优先于其包装的账本错误
var errorKinds = []struct {
	target error
	kind   ErrorKind
}{
	{ErrResourceUnavailable, KindResource},
	{ErrAffiliateCodeGenerate, KindResource},
	{ErrObligationNotApproved, KindPolicy},
	{ErrLedgerRejected, KindPolicy},
	{ErrDuplicateSource, KindConflict},
	{ErrAlreadySettled, KindConflict},
	{ErrAffiliateExists, KindConflict},
	{ErrAffiliateCodeExists, KindConflict},
	{ErrRateDateConflict, KindConflict},
	{ErrNotFound, KindNotFound},
	{ErrAffiliateNotFound, KindNotFound},
	{ErrInvalidInput, KindValidation},
	{ErrInvalidCurrency, KindValidation},
	{ErrNonPositiveAmount, KindValidation},
	{ErrInvalidTxType, KindValidation},
	{ErrInvalidScope, KindValidation},
	{ErrInvalidDecision, KindValidation},
	{ErrInvalidRate, KindValidation},
	{ErrRateBackdated, KindValidation},
	{ErrAffiliateStatusInvalid, KindValidation},
	{ErrUserIDRequired, KindValidation},
	{ErrOperationIDRequired, KindValidation},
	{ErrWeakPassword, KindValidation},
}

// KindOf 返回错误分类，未知错误返回 KindUnknown
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, item := range errorKinds {
		if errors.Is(err, item.target) {
			return item.kind
		}
	}
	return KindUnknown
}

// LedgerReason 账本拒绝原因
type LedgerReason string

const (
	LedgerReasonInvalidCurrency   LedgerReason = "InvalidCurrency"
	LedgerReasonNonPositiveAmount LedgerReason = "NonPositiveAmount"
	LedgerReasonInvalidType       LedgerReason = "InvalidType"
)

// LedgerError 账本追加失败
type LedgerError struct {
	Reason LedgerReason
	Detail string
}

func (e *LedgerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("ledger: %s", e.Reason)
	}
	return fmt.Sprintf("ledger: %s: %s", e.Reason, e.Detail)
}

func (e *LedgerError) Unwrap() error {
	switch e.Reason {
	case LedgerReasonInvalidCurrency:
		return ErrInvalidCurrency
	case LedgerReasonNonPositiveAmount:
		return ErrNonPositiveAmount
	case LedgerReasonInvalidType:
		return ErrInvalidTxType
	default:
		return nil
	}
}

// TrackerReason 义务流转失败原因
type TrackerReason string

const (
	TrackerReasonDuplicateSource TrackerReason = "DuplicateSource"
	TrackerReasonAlreadySettled  TrackerReason = "AlreadySettled"
)

// TrackerError 义务提交或审核失败
type TrackerError struct {
	Reason       TrackerReason
	ObligationID uint
	Status       string
}

func (e *TrackerError) Error() string {
	if e.ObligationID == 0 {
		return fmt.Sprintf("obligation: %s", e.Reason)
	}
	return fmt.Sprintf("obligation %d: %s (status=%s)", e.ObligationID, e.Reason, e.Status)
}

func (e *TrackerError) Unwrap() error {
	switch e.Reason {
	case TrackerReasonDuplicateSource:
		return ErrDuplicateSource
	case TrackerReasonAlreadySettled:
		return ErrAlreadySettled
	default:
		return nil
	}
}

// SettleReason 结算失败原因
type SettleReason string

const (
	SettleReasonObligationNotApproved SettleReason = "ObligationNotApproved"
	SettleReasonLedgerRejected        SettleReason = "LedgerRejected"
)

// SettleError 结算失败，LedgerRejected 时 Cause 为 *LedgerError
type SettleError struct {
	Reason       SettleReason
	ObligationID uint
	Cause        error
}

func (e *SettleError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("settle obligation %d: %s: %v", e.ObligationID, e.Reason, e.Cause)
	}
	return fmt.Sprintf("settle obligation %d: %s", e.ObligationID, e.Reason)
}

func (e *SettleError) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch e.Reason {
	case SettleReasonObligationNotApproved:
		errs = append(errs, ErrObligationNotApproved)
	case SettleReasonLedgerRejected:
		errs = append(errs, ErrLedgerRejected)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// wrapResource 将持久化失败与超时归为资源错误，业务错误原样返回
func wrapResource(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
}
