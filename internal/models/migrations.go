package models

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrations 版本化迁移列表，只允许追加
func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202601010001_create_admins",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Admin{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&Admin{})
			},
		},
		{
			ID: "202601010002_create_affiliates",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Affiliate{}, &AffiliateRateChange{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&AffiliateRateChange{}, &Affiliate{})
			},
		},
		{
			ID: "202601010003_create_ledger",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&LedgerTransaction{}, &Obligation{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&LedgerTransaction{}, &Obligation{})
			},
		},
		{
			ID: "202601010004_create_audit_logs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&AuditLog{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&AuditLog{})
			},
		},
	}
}

// Migrate 在指定连接上执行迁移
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	return m.Migrate()
}
