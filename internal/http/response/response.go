package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应体，HTTP 状态恒为 200，业务结果看 status_code
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// BuildPagination 根据总数构建分页信息
func BuildPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

func write(c *gin.Context, body Response) {
	c.JSON(http.StatusOK, body)
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	write(c, Response{StatusCode: CodeOK, Msg: "success", Data: data})
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	write(c, Response{StatusCode: CodeOK, Msg: "success", Data: data, Pagination: &pagination})
}

// Error 错误响应，data 中附带 request_id 便于排查
func Error(c *gin.Context, code int, msg string) {
	ErrorWithData(c, code, msg, nil)
}

// ErrorWithData 错误响应，data 为 map 时合并 request_id
func ErrorWithData(c *gin.Context, code int, msg string, data interface{}) {
	write(c, Response{StatusCode: code, Msg: msg, Data: withRequestID(c, data)})
}

// Unauthorized 未登录
func Unauthorized(c *gin.Context, msg string) { Error(c, CodeUnauthorized, msg) }

// Forbidden 无权限
func Forbidden(c *gin.Context, msg string) { Error(c, CodeForbidden, msg) }

func withRequestID(c *gin.Context, data interface{}) interface{} {
	requestID := ""
	if c != nil {
		requestID = c.GetString("request_id")
	}
	switch v := data.(type) {
	case nil:
		if requestID == "" {
			return nil
		}
		return gin.H{"request_id": requestID}
	case gin.H:
		if requestID != "" {
			v["request_id"] = requestID
		}
		return v
	case map[string]interface{}:
		if requestID != "" {
			v["request_id"] = requestID
		}
		return v
	default:
		return data
	}
}
