package repository

import (
	"testing"

	"github.com/signaldesk-ledger/internal/models"
)

func TestAdminRepositoryLookups(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewAdminRepository(db)

	admin := &models.Admin{Username: "finance01", PasswordHash: "x"}
	if err := repo.Create(admin); err != nil {
		t.Fatalf("create admin failed: %v", err)
	}

	found, err := repo.GetByUsername(" finance01 ")
	if err != nil || found == nil || found.ID != admin.ID {
		t.Fatalf("lookup by username failed: %+v err=%v", found, err)
	}
	missing, err := repo.GetByID(admin.ID + 100)
	if err != nil || missing != nil {
		t.Fatalf("missing admin must be (nil, nil), got %+v err=%v", missing, err)
	}
	if empty, err := repo.GetByUsername("  "); empty != nil || err != nil {
		t.Fatalf("blank username must short-circuit")
	}

	found.Disabled = true
	if err := repo.Update(found); err != nil {
		t.Fatalf("update admin failed: %v", err)
	}
	reloaded, err := repo.GetByID(admin.ID)
	if err != nil || reloaded == nil || !reloaded.Disabled {
		t.Fatalf("update not persisted: %+v err=%v", reloaded, err)
	}

	list, err := repo.List()
	if err != nil || len(list) != 1 {
		t.Fatalf("list admins failed: %v len=%d", err, len(list))
	}
	if list[0].PasswordHash != "" {
		t.Fatalf("list must not load password hash")
	}
}
