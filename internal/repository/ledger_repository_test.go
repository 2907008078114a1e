package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupLedgerRepositoryTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func uintPtr(v uint) *uint {
	return &v
}

func createLedgerTxn(t *testing.T, repo LedgerRepository, txType string, minor int64, currency string, at time.Time, mutate func(*models.LedgerTransaction)) *models.LedgerTransaction {
	t.Helper()
	txn := &models.LedgerTransaction{
		TxID:        uuid.NewString(),
		Type:        txType,
		AmountMinor: minor,
		Currency:    currency,
		PostedBy:    "test",
		CreatedAt:   at,
	}
	if mutate != nil {
		mutate(txn)
	}
	if err := repo.Create(txn); err != nil {
		t.Fatalf("create ledger txn failed: %v", err)
	}
	return txn
}

func TestLedgerRepositorySumByTypeRespectsScopeAndAsOf(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewLedgerRepository(db)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	createLedgerTxn(t, repo, constants.TxTypeEntrada, 100000, "USD", base, nil)
	createLedgerTxn(t, repo, constants.TxTypeEntrada, 5000, "BRL", base, nil)
	createLedgerTxn(t, repo, constants.TxTypePagamentoAfiliado, 2000, "USD", base.Add(time.Hour), func(txn *models.LedgerTransaction) {
		txn.RelatedAffiliateID = uintPtr(7)
	})
	createLedgerTxn(t, repo, constants.TxTypeRetiradaEmpresa, 300, "USD", base.Add(48*time.Hour), nil)

	rows, err := repo.SumByType(LedgerSumFilter{Currency: "USD"})
	if err != nil {
		t.Fatalf("sum by type failed: %v", err)
	}
	totals := map[string]int64{}
	for _, row := range rows {
		if row.Currency != "USD" {
			t.Fatalf("unexpected currency %s", row.Currency)
		}
		totals[row.Type] = row.Total
	}
	if totals[constants.TxTypeEntrada] != 100000 || totals[constants.TxTypePagamentoAfiliado] != 2000 || totals[constants.TxTypeRetiradaEmpresa] != 300 {
		t.Fatalf("unexpected totals %+v", totals)
	}

	asOf := base.Add(2 * time.Hour)
	rows, err = repo.SumByType(LedgerSumFilter{Currency: "USD", AsOf: &asOf})
	if err != nil {
		t.Fatalf("sum by type as of failed: %v", err)
	}
	for _, row := range rows {
		if row.Type == constants.TxTypeRetiradaEmpresa {
			t.Fatalf("as_of should exclude later withdrawal")
		}
	}

	rows, err = repo.SumByType(LedgerSumFilter{Scope: LedgerScopeFilter{AffiliateID: 7}})
	if err != nil {
		t.Fatalf("sum by affiliate failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Type != constants.TxTypePagamentoAfiliado || rows[0].Total != 2000 {
		t.Fatalf("unexpected affiliate rows %+v", rows)
	}
}

func TestLedgerRepositorySettledReservesFollowObligationClose(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewLedgerRepository(db)
	obligations := NewObligationRepository(db)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	open := &models.Obligation{Kind: constants.ObligationKindCommission, SourceOperationID: "op-open", AmountMinor: 100, Currency: "USD", Status: constants.ObligationStatusPending}
	closedAt := base.Add(time.Hour)
	closed := &models.Obligation{Kind: constants.ObligationKindCommission, SourceOperationID: "op-closed", AmountMinor: 250, Currency: "USD", Status: constants.ObligationStatusPaid, ClosedAt: &closedAt}
	for _, item := range []*models.Obligation{open, closed} {
		if err := obligations.Create(item); err != nil {
			t.Fatalf("create obligation failed: %v", err)
		}
	}
	createLedgerTxn(t, repo, constants.TxTypeReserva, 100, "USD", base, func(txn *models.LedgerTransaction) {
		txn.ReserveObligationID = uintPtr(open.ID)
	})
	createLedgerTxn(t, repo, constants.TxTypeReserva, 250, "USD", base, func(txn *models.LedgerTransaction) {
		txn.ReserveObligationID = uintPtr(closed.ID)
	})
	createLedgerTxn(t, repo, constants.TxTypeReserva, 40, "USD", base, nil)

	rows, err := repo.SumSettledReserves(LedgerSumFilter{Currency: "USD"})
	if err != nil {
		t.Fatalf("sum settled reserves failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Total != 250 || rows[0].Count != 1 {
		t.Fatalf("unexpected settled reserves %+v", rows)
	}

	before := base.Add(30 * time.Minute)
	rows, err = repo.SumSettledReserves(LedgerSumFilter{Currency: "USD", AsOf: &before})
	if err != nil {
		t.Fatalf("sum settled reserves as of failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("reserve closed after as_of should still be committed, got %+v", rows)
	}
}

func TestLedgerRepositorySumMonthly(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewLedgerRepository(db)

	createLedgerTxn(t, repo, constants.TxTypeEntrada, 1000, "USD", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), nil)
	createLedgerTxn(t, repo, constants.TxTypeEntrada, 500, "USD", time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), nil)
	createLedgerTxn(t, repo, constants.TxTypePagamentoUsuario, 200, "USD", time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), nil)

	rows, err := repo.SumMonthly(MonthlyFlowFilter{Currency: "USD"})
	if err != nil {
		t.Fatalf("sum monthly failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 monthly rows, got %+v", rows)
	}
	if rows[0].Month != "2025-01" || rows[0].Total != 1500 || rows[0].Type != constants.TxTypeEntrada {
		t.Fatalf("unexpected january row %+v", rows[0])
	}
	if rows[1].Month != "2025-02" || rows[1].Total != 200 {
		t.Fatalf("unexpected february row %+v", rows[1])
	}
}

func TestLedgerRepositoryRejectsSecondSettlementPosting(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewLedgerRepository(db)
	now := time.Now().UTC()

	createLedgerTxn(t, repo, constants.TxTypePagamentoAfiliado, 2000, "USD", now, func(txn *models.LedgerTransaction) {
		txn.SettlementObligationID = uintPtr(9)
	})
	dup := &models.LedgerTransaction{
		TxID:                   uuid.NewString(),
		Type:                   constants.TxTypePagamentoAfiliado,
		AmountMinor:            2000,
		Currency:               "USD",
		SettlementObligationID: uintPtr(9),
		CreatedAt:              now,
	}
	if err := repo.Create(dup); err == nil {
		t.Fatalf("expected unique violation on settlement_obligation_id")
	}
	count, err := repo.CountBySettlementObligationID(9)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one settlement posting, got %d", count)
	}
}
