package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/ledger"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/money"
	"github.com/signaldesk-ledger/internal/repository"
)

func submitTestRefund(t *testing.T, env *ledgerTestEnv, requestID string, userID uint, amount money.Money) *ObligationView {
	t.Helper()
	view, err := env.tracker.SubmitRefund(context.Background(), RefundRequestInput{
		RequestID: requestID,
		UserID:    userID,
		Amount:    amount,
		Reason:    "duplicate charge",
	})
	if err != nil {
		t.Fatalf("submit refund %s failed: %v", requestID, err)
	}
	return view
}

func TestRefundApproveThenRejectIsAlreadySettled(t *testing.T) {
	env := setupLedgerTestEnv(t, nil)
	ctx := context.Background()
	mustAppend(t, env.ledger, constants.TxTypeEntrada, money.New(100000, money.BRL))

	refund := submitTestRefund(t, env, "req-50", 11, money.New(5000, money.BRL))
	if refund.Status != constants.ObligationStatusPending {
		t.Fatalf("expected pending refund, got %s", refund.Status)
	}
	if refund.SourceOperationID != "refund:req-50" {
		t.Fatalf("unexpected source id %s", refund.SourceOperationID)
	}

	result, err := env.tracker.Decide(ctx, refund.ID, constants.DecisionApprove, "admin:finance")
	if err != nil {
		t.Fatalf("approve refund failed: %v", err)
	}
	if result.Obligation.Status != constants.ObligationStatusPaid || result.TxID == "" {
		t.Fatalf("approve should settle synchronously, got %+v", result)
	}

	rowsBefore := countLedgerRows(t, env.db)
	balanceBefore := platformBalance(t, env.ledger, money.BRL)

	_, err = env.tracker.Decide(ctx, refund.ID, constants.DecisionReject, "admin:support")
	if !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("expected AlreadySettled, got %v", err)
	}
	var trackerErr *TrackerError
	if !errors.As(err, &trackerErr) || trackerErr.Reason != TrackerReasonAlreadySettled {
		t.Fatalf("expected TrackerError AlreadySettled, got %#v", err)
	}
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict kind, got %q", KindOf(err))
	}

	if got := countLedgerRows(t, env.db); got != rowsBefore {
		t.Fatalf("ledger changed after rejected decision: %d -> %d", rowsBefore, got)
	}
	balanceAfter := platformBalance(t, env.ledger, money.BRL)
	if balanceAfter.Liquido != balanceBefore.Liquido || balanceAfter.Comprometido != balanceBefore.Comprometido {
		t.Fatalf("balance changed after rejected decision: %+v -> %+v", balanceBefore, balanceAfter)
	}
	if balanceAfter.Liquido.Amount != 95000 {
		t.Fatalf("expected 950.00 BRL after refund, got %s", balanceAfter.Liquido)
	}
	if !balanceAfter.Comprometido.IsZero() {
		t.Fatalf("reserve should be released after payment, got %s", balanceAfter.Comprometido)
	}

	userBalance, err := env.ledger.Balance(ctx, BalanceQuery{Scope: ledger.UserScope(11), Currency: money.BRL})
	if err != nil {
		t.Fatalf("user balance failed: %v", err)
	}
	if userBalance.Liquido.Amount != -5000 {
		t.Fatalf("refund payment should be attributed to the user, got %s", userBalance.Liquido)
	}
}

func TestConcurrentApproveHasSingleWinner(t *testing.T) {
	env := setupLedgerTestEnv(t, nil)
	refund := submitTestRefund(t, env, "req-race", 21, money.New(2500, money.USD))

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = env.tracker.Decide(context.Background(), refund.ID, constants.DecisionApprove, "admin:race")
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrAlreadySettled):
		default:
			t.Fatalf("unexpected decide error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one successful approval, got %d", success)
	}
	count, err := repository.NewLedgerRepository(env.db).CountBySettlementObligationID(refund.ID)
	if err != nil {
		t.Fatalf("count settlement rows failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one settlement transaction, got %d", count)
	}
}

func TestSettleTwiceReturnsSameTxID(t *testing.T) {
	env := setupLedgerTestEnv(t, nil)
	ctx := context.Background()
	refund := submitTestRefund(t, env, "req-retry", 5, money.New(1234, money.EUR))

	result, err := env.tracker.Decide(ctx, refund.ID, constants.DecisionApprove, "admin:finance")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	rows := countLedgerRows(t, env.db)

	for i := 0; i < 2; i++ {
		txID, err := env.settlement.Settle(ctx, refund.ID, "admin:retry")
		if err != nil {
			t.Fatalf("settle retry %d failed: %v", i, err)
		}
		if txID != result.TxID {
			t.Fatalf("settle retry %d returned %s, want %s", i, txID, result.TxID)
		}
	}
	if got := countLedgerRows(t, env.db); got != rows {
		t.Fatalf("settle retry created new rows: %d -> %d", rows, got)
	}
	posted, err := repository.NewLedgerRepository(env.db).GetByTxID(result.TxID)
	if err != nil || posted == nil {
		t.Fatalf("settlement tx not found: %v", err)
	}
	if posted.Type != constants.TxTypePagamentoUsuario || posted.AmountMinor != 1234 || posted.Currency != "EUR" {
		t.Fatalf("unexpected settlement tx: %+v", posted)
	}
}

func TestSettlePendingIsPolicyError(t *testing.T) {
	env := setupLedgerTestEnv(t, nil)
	refund := submitTestRefund(t, env, "req-early", 9, money.New(700, money.USD))

	_, err := env.settlement.Settle(context.Background(), refund.ID, "admin:eager")
	var settleErr *SettleError
	if !errors.As(err, &settleErr) || settleErr.Reason != SettleReasonObligationNotApproved {
		t.Fatalf("expected ObligationNotApproved, got %v", err)
	}
	if KindOf(err) != KindPolicy {
		t.Fatalf("expected policy kind, got %q", KindOf(err))
	}

	if _, err := env.settlement.Settle(context.Background(), 9999, "admin:eager"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown obligation, got %v", err)
	}
}

func TestSettleLedgerRejectionRollsBack(t *testing.T) {
	env := setupLedgerTestEnv(t, func(cfg *config.LedgerConfig) {
		cfg.Currencies = []string{"USD"}
		cfg.ReserveOnSubmit = false
	})
	ctx := context.Background()
	refund := submitTestRefund(t, env, "req-eur", 4, money.New(900, money.EUR))

	_, err := env.tracker.Decide(ctx, refund.ID, constants.DecisionApprove, "admin:finance")
	var settleErr *SettleError
	if !errors.As(err, &settleErr) || settleErr.Reason != SettleReasonLedgerRejected {
		t.Fatalf("expected LedgerRejected, got %v", err)
	}
	var ledgerErr *LedgerError
	if !errors.As(settleErr.Cause, &ledgerErr) || ledgerErr.Reason != LedgerReasonInvalidCurrency {
		t.Fatalf("expected InvalidCurrency cause, got %v", settleErr.Cause)
	}
	if KindOf(err) != KindPolicy {
		t.Fatalf("expected policy kind, got %q", KindOf(err))
	}

	stored, err := env.tracker.Get(ctx, refund.ID)
	if err != nil {
		t.Fatalf("get obligation failed: %v", err)
	}
	if stored.Status != constants.ObligationStatusPending || stored.Version != 0 || stored.DecidedAt != nil {
		t.Fatalf("failed approval must roll back, got %+v", stored.Obligation)
	}
	if got := countLedgerRows(t, env.db); got != 0 {
		t.Fatalf("expected empty ledger, got %d rows", got)
	}
}

func TestRejectReleasesReserveWithoutLedgerEffect(t *testing.T) {
	env := setupLedgerTestEnv(t, nil)
	ctx := context.Background()
	mustAppend(t, env.ledger, constants.TxTypeEntrada, money.New(10000, money.USD))
	refund := submitTestRefund(t, env, "req-reject", 8, money.New(3000, money.USD))

	if b := platformBalance(t, env.ledger, money.USD); b.Comprometido.Amount != 3000 {
		t.Fatalf("pending refund should be committed, got %s", b.Comprometido)
	}
	result, err := env.tracker.Decide(ctx, refund.ID, "Reject", "admin:support")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if result.Obligation.Status != constants.ObligationStatusRejected || result.TxID != "" {
		t.Fatalf("unexpected reject result: %+v", result)
	}
	if result.Obligation.ClosedAt == nil || result.Obligation.DecidedBy != "admin:support" {
		t.Fatalf("reject must close the obligation, got %+v", result.Obligation)
	}
	b := platformBalance(t, env.ledger, money.USD)
	if b.Liquido.Amount != 10000 || !b.Comprometido.IsZero() {
		t.Fatalf("reject must release reserve only, got %+v", b)
	}
	count, err := repository.NewLedgerRepository(env.db).CountBySettlementObligationID(refund.ID)
	if err != nil || count != 0 {
		t.Fatalf("rejected refund must not post settlement, count=%d err=%v", count, err)
	}
}

func TestSubmitDuplicateSource(t *testing.T) {
	env := setupLedgerTestEnv(t, nil)
	first := submitTestRefund(t, env, "req-dup", 2, money.New(100, money.USD))

	_, err := env.tracker.SubmitRefund(context.Background(), RefundRequestInput{
		RequestID: " req-dup ",
		UserID:    2,
		Amount:    money.New(100, money.USD),
	})
	var trackerErr *TrackerError
	if !errors.As(err, &trackerErr) || trackerErr.Reason != TrackerReasonDuplicateSource {
		t.Fatalf("expected DuplicateSource, got %v", err)
	}
	if trackerErr.ObligationID != first.ID {
		t.Fatalf("duplicate should reference %d, got %d", first.ID, trackerErr.ObligationID)
	}
	if got := countLedgerRows(t, env.db); got != 1 {
		t.Fatalf("duplicate must not add a second reserve, got %d rows", got)
	}
}

func TestSubmitValidatesObligation(t *testing.T) {
	env := setupLedgerTestEnv(t, nil)
	ctx := context.Background()
	affiliateID := uint(3)

	cases := []struct {
		name string
		ob   *models.Obligation
		kind ErrorKind
	}{
		{"missing source", &models.Obligation{Kind: constants.ObligationKindCommission, AffiliateID: &affiliateID, AmountMinor: 10, Currency: "USD"}, KindValidation},
		{"missing affiliate", &models.Obligation{Kind: constants.ObligationKindCommission, SourceOperationID: "op-x", AmountMinor: 10, Currency: "USD"}, KindValidation},
		{"bad currency", &models.Obligation{Kind: constants.ObligationKindCommission, AffiliateID: &affiliateID, SourceOperationID: "op-y", AmountMinor: 10, Currency: "DOGE"}, KindValidation},
		{"zero owed", &models.Obligation{Kind: constants.ObligationKindCommission, AffiliateID: &affiliateID, SourceOperationID: "op-z", Currency: "USD"}, KindValidation},
		{"unknown kind", &models.Obligation{Kind: "bonus", AffiliateID: &affiliateID, SourceOperationID: "op-w", AmountMinor: 10, Currency: "USD"}, KindValidation},
	}
	for _, tc := range cases {
		if err := env.tracker.Submit(ctx, tc.ob); KindOf(err) != tc.kind {
			t.Fatalf("%s: expected %q, got %v", tc.name, tc.kind, err)
		}
	}
}

func TestDecideRejectsUnknownDecisionAndObligation(t *testing.T) {
	env := setupLedgerTestEnv(t, nil)
	refund := submitTestRefund(t, env, "req-bad", 1, money.New(100, money.USD))

	if _, err := env.tracker.Decide(context.Background(), refund.ID, "maybe", "admin"); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected invalid decision, got %v", err)
	}
	if _, err := env.tracker.Decide(context.Background(), 4242, constants.DecisionApprove, "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListPendingFilters(t *testing.T) {
	env := setupLedgerTestEnv(t, nil)
	ctx := context.Background()
	submitTestRefund(t, env, "req-a", 1, money.New(100, money.USD))
	second := submitTestRefund(t, env, "req-b", 2, money.New(200, money.BRL))
	third := submitTestRefund(t, env, "req-c", 3, money.New(300, money.USD))
	if _, err := env.tracker.Decide(ctx, third.ID, constants.DecisionReject, "admin"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	rows, total, err := env.tracker.ListPending(ctx, PendingFilter{})
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 pending, got total=%d len=%d", total, len(rows))
	}

	brl, _, err := env.tracker.ListPending(ctx, PendingFilter{Currency: "brl"})
	if err != nil {
		t.Fatalf("list pending brl failed: %v", err)
	}
	if len(brl) != 1 || brl[0].ID != second.ID || brl[0].Owed.Amount != 200 {
		t.Fatalf("unexpected brl rows: %+v", brl)
	}

	all, total, err := env.tracker.ListPending(ctx, PendingFilter{Status: "all"})
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("expected 3 obligations in total, got %d", total)
	}
}
