package repository

import (
	"testing"
	"time"

	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/models"
)

func TestAffiliateRepositoryRateChangeAt(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewAffiliateRepository(db)

	affiliate := &models.Affiliate{
		UserID:         10,
		AffiliateCode:  "ABCD1234",
		Status:         constants.AffiliateStatusActive,
		CommissionRate: models.MustPercent("1.5"),
		JoinDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(affiliate); err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	changes := []models.AffiliateRateChange{
		{AffiliateID: affiliate.ID, EffectiveDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Rate: models.MustPercent("1.5")},
		{AffiliateID: affiliate.ID, EffectiveDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Rate: models.MustPercent("2.5")},
	}
	for i := range changes {
		if err := repo.CreateRateChange(&changes[i]); err != nil {
			t.Fatalf("create rate change failed: %v", err)
		}
	}

	dup := &models.AffiliateRateChange{AffiliateID: affiliate.ID, EffectiveDate: changes[1].EffectiveDate, Rate: models.MustPercent("3")}
	if err := repo.CreateRateChange(dup); err == nil {
		t.Fatalf("expected unique violation on (affiliate_id, effective_date)")
	}

	at, err := repo.GetRateChangeAt(affiliate.ID, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || at == nil {
		t.Fatalf("rate at march failed: %v", err)
	}
	if at.Rate.String() != "1.5%" {
		t.Fatalf("expected 1.5%% in march, got %s", at.Rate.String())
	}

	history, err := repo.ListRateChanges(affiliate.ID)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 2 || !history[0].EffectiveDate.Before(history[1].EffectiveDate) {
		t.Fatalf("history should be ascending, got %+v", history)
	}

	before, err := repo.GetRateChangeAt(affiliate.ID, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("rate before join failed: %v", err)
	}
	if before != nil {
		t.Fatalf("expected no rate before join date")
	}
}

func TestAffiliateRepositoryCodeIsImmutable(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewAffiliateRepository(db)

	affiliate := &models.Affiliate{UserID: 11, AffiliateCode: "IMMUTBL1", Status: constants.AffiliateStatusActive, JoinDate: time.Now().UTC()}
	if err := repo.Create(affiliate); err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	if err := repo.UpdateFields(affiliate.ID, map[string]interface{}{"affiliate_code": "OTHER"}); err == nil {
		t.Fatalf("expected code update to be refused")
	}
	found, err := repo.GetByCode("immutbl1")
	if err != nil || found == nil {
		t.Fatalf("lookup by code failed: %v", err)
	}
}
