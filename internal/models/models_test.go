package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/signaldesk-ledger/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func openTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:models_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	require.NoError(t, InitDB(config.DatabaseConfig{Driver: "sqlite", DSN: dsn, Pool: config.DatabasePoolConfig{MaxOpenConns: 1}}))
	require.NoError(t, AutoMigrate())
	t.Cleanup(func() { DB = nil })
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "", config.DatabasePoolConfig{})
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	openTestDB(t)
	require.NoError(t, Migrate(DB))
	assert.True(t, DB.Migrator().HasTable(&LedgerTransaction{}))
	assert.True(t, DB.Migrator().HasTable(&Obligation{}))
}

func TestInitDefaultAdmin(t *testing.T) {
	openTestDB(t)
	require.NoError(t, InitDefaultAdmin("", "Start#2025"))

	var admin Admin
	require.NoError(t, DB.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.IsSuper)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("Start#2025")))

	// 已有管理员时不再创建
	require.NoError(t, InitDefaultAdmin("admin", "other"))
	var count int64
	require.NoError(t, DB.Model(&Admin{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestJSONScan(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan([]byte(`{"rate":"2.5"}`)))
	assert.Equal(t, "2.5", j["rate"])

	require.NoError(t, j.Scan(nil))
	assert.Empty(t, j)

	assert.Error(t, j.Scan(42))

	value, err := JSON{"k": "v"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, value)
}

func TestPercentRange(t *testing.T) {
	assert.True(t, MustPercent("2.5").InRange())
	assert.True(t, MustPercent("0").InRange())
	assert.False(t, MustPercent("100.01").InRange())
	assert.False(t, MustPercent("-1").InRange())
}
