package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/signaldesk-ledger/internal/http/handlers/shared"
	"github.com/signaldesk-ledger/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.AdminID(c)
}

// currentActor 记账操作人标识，如 admin:finance01
func currentActor(c *gin.Context) string {
	if username := strings.TrimSpace(c.GetString("username")); username != "" {
		return "admin:" + username
	}
	if id := c.GetUint("admin_id"); id > 0 {
		return "admin:" + strconv.FormatUint(uint64(id), 10)
	}
	return ""
}

func currentAdminIsSuper(c *gin.Context) bool {
	return c.GetBool("admin_is_super")
}

func readPagination(c *gin.Context) (int, int) {
	return handlershared.ReadPagination(c)
}

// parsePathID 解析路径中的正整数 ID，失败时直接响应
func parsePathID(c *gin.Context, key string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(key))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(parsed), true
}

func parseQueryUint(c *gin.Context, key string) (uint, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

// parseTimeNullable 支持 RFC3339 与 2006-01-02
func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
