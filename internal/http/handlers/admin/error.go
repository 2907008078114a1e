package admin

import (
	handlershared "github.com/signaldesk-ledger/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestLog 带 request_id 与路由字段的请求级日志
func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondErrorWithMsg(c, code, msg, err)
}

// respondServiceError 按账本、义务与推广者错误分类映射业务状态码
func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondServiceError(c, err)
}

func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}
