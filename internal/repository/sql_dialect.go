package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// monthExpr 构建 YYYY-MM 月份表达式，兼容 sqlite 与 postgres。
func monthExpr(db *gorm.DB, column string) string {
	return monthExprByDialect(dbDialectName(db), column)
}

func monthExprByDialect(dialect, column string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", column)
	default:
		return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
	}
}

// supportsRowLock 是否支持 SELECT ... FOR UPDATE
func supportsRowLock(db *gorm.DB) bool {
	switch dbDialectName(db) {
	case "postgres", "postgresql", "mysql":
		return true
	default:
		return false
	}
}

// forUpdate 支持行锁的方言追加 FOR UPDATE，sqlite 依赖写事务串行
func forUpdate(db *gorm.DB) *gorm.DB {
	if supportsRowLock(db) {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// firstOrNil 取首条记录，未找到返回 (nil, nil)
func firstOrNil[T any](query *gorm.DB, conds ...interface{}) (*T, error) {
	var row T
	err := query.First(&row, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func snapshotTxOptions(dialect string) *sql.TxOptions {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql", "mysql":
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	default:
		return nil
	}
}

// SnapshotRead 在同一只读事务内执行多条聚合查询，避免读到结算的中间状态
// sqlite 的事务本身可串行化，使用默认隔离级别
func SnapshotRead(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.Transaction(fn, snapshotTxOptions(dbDialectName(db)))
}
