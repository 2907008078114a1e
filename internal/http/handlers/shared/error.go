package shared

import (
	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/i18n"
	"github.com/signaldesk-ledger/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 带 request_id 的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c != nil {
		if id := c.GetString("request_id"); id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 按文案键返回本地化错误
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondErrorWithMsg(c, code, i18n.T(i18n.ResolveLocale(c), key), err)
}

// RespondErrorWithMsg 返回已本地化的错误消息，err 非空时记录日志
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		log := RequestLog(c)
		fields := []interface{}{"code", code, "message", msg, "route", c.FullPath(), "error", err}
		if code >= response.CodeInternal {
			log.Errorw("handler_error", fields...)
		} else {
			log.Warnw("handler_error", fields...)
		}
	}
	response.Error(c, code, msg)
}

// RespondErrorWithData 返回携带数据的本地化错误
func RespondErrorWithData(c *gin.Context, code int, key string, data interface{}) {
	response.ErrorWithData(c, code, i18n.T(i18n.ResolveLocale(c), key), data)
}
