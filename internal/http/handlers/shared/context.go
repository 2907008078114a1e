package shared

import (
	"github.com/signaldesk-ledger/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AdminID 读取鉴权中间件写入的管理员 ID，缺失时直接响应未登录
func AdminID(c *gin.Context) (uint, bool) {
	if id := c.GetUint("admin_id"); id > 0 {
		return id, true
	}
	RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
	return 0, false
}
