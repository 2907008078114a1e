package repository

import "gorm.io/gorm"

// applyPagination 交易、义务、推广者与审计日志列表共用的分页，上限由调用方收敛
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return query.Limit(pageSize).Offset(offset)
}

// applyLedgerScope 按关联用户或推广者收窄查询范围
func applyLedgerScope(query *gorm.DB, table string, scope LedgerScopeFilter) *gorm.DB {
	if query == nil {
		return query
	}
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	if scope.UserID != 0 {
		query = query.Where(prefix+"related_user_id = ?", scope.UserID)
	}
	if scope.AffiliateID != 0 {
		query = query.Where(prefix+"related_affiliate_id = ?", scope.AffiliateID)
	}
	return query
}
