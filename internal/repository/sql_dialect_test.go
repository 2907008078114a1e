package repository

import (
	"database/sql"
	"testing"
)

func TestMonthExprByDialectSQLite(t *testing.T) {
	got := monthExprByDialect("sqlite", "created_at")
	want := "strftime('%Y-%m', created_at)"
	if got != want {
		t.Fatalf("sqlite month expr mismatch, want %s got %s", want, got)
	}
}

func TestMonthExprByDialectPostgres(t *testing.T) {
	got := monthExprByDialect("postgres", "ledger_transactions.created_at")
	want := "to_char(ledger_transactions.created_at, 'YYYY-MM')"
	if got != want {
		t.Fatalf("postgres month expr mismatch, want %s got %s", want, got)
	}
}

func TestDBDialectNameDefaultsToSQLite(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("nil db dialect want sqlite got %s", got)
	}
	if supportsRowLock(nil) {
		t.Fatalf("sqlite should not use row locks")
	}
}

func TestSnapshotTxOptionsByDialect(t *testing.T) {
	opts := snapshotTxOptions("postgres")
	if opts == nil || opts.Isolation != sql.LevelRepeatableRead || !opts.ReadOnly {
		t.Fatalf("postgres snapshot should be read-only repeatable read, got %+v", opts)
	}
	if opts := snapshotTxOptions("sqlite"); opts != nil {
		t.Fatalf("sqlite snapshot should use default options, got %+v", opts)
	}
}
