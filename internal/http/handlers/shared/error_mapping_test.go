package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/ledger"
	"github.com/signaldesk-ledger/internal/money"
	"github.com/signaldesk-ledger/internal/service"
)

func TestStatusForServiceError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		key  string
	}{
		{
			name: "ledger rejected settlement",
			err:  &service.SettleError{Reason: service.SettleReasonLedgerRejected, ObligationID: 3, Cause: &service.LedgerError{Reason: service.LedgerReasonInvalidCurrency}},
			code: response.CodeUnprocessable,
			key:  "error.ledger_rejected",
		},
		{
			name: "duplicate source",
			err:  &service.TrackerError{Reason: service.TrackerReasonDuplicateSource, ObligationID: 9},
			code: response.CodeConflict,
			key:  "error.duplicate_source",
		},
		{
			name: "already settled",
			err:  &service.TrackerError{Reason: service.TrackerReasonAlreadySettled, ObligationID: 9, Status: "paid"},
			code: response.CodeConflict,
			key:  "error.already_settled",
		},
		{
			name: "unsupported ledger currency",
			err:  &service.LedgerError{Reason: service.LedgerReasonInvalidCurrency, Detail: "JPY"},
			code: response.CodeBadRequest,
			key:  "error.invalid_currency",
		},
		{
			name: "money parse",
			err:  fmt.Errorf("amount: %w", money.ErrInvalidAmount),
			code: response.CodeBadRequest,
			key:  "error.invalid_amount",
		},
		{
			name: "scope parse",
			err:  fmt.Errorf("%w: %q", ledger.ErrInvalidScope, "desk:1"),
			code: response.CodeBadRequest,
			key:  "error.invalid_scope",
		},
		{
			name: "affiliate missing",
			err:  service.ErrAffiliateNotFound,
			code: response.CodeNotFound,
			key:  "error.affiliate_not_found",
		},
		{
			name: "deadline",
			err:  fmt.Errorf("%w: %v", service.ErrResourceUnavailable, context.DeadlineExceeded),
			code: response.CodeServiceUnavailable,
			key:  "error.resource_unavailable",
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			code: response.CodeInternal,
			key:  "error.internal",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, key := StatusForServiceError(tc.err)
			if code != tc.code || key != tc.key {
				t.Fatalf("expected %d/%s, got %d/%s", tc.code, tc.key, code, key)
			}
		})
	}
}
