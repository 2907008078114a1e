package shared

import (
	"strings"

	"github.com/signaldesk-ledger/internal/service"
)

// CaptchaPayloadRequest 后台登录附带的图形验证码，未启用验证码时可为空
type CaptchaPayloadRequest struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// ToServicePayload 去除首尾空白后交给 CaptchaService 校验
func (r CaptchaPayloadRequest) ToServicePayload() service.CaptchaVerifyPayload {
	return service.CaptchaVerifyPayload{
		CaptchaID:   strings.TrimSpace(r.CaptchaID),
		CaptchaCode: strings.TrimSpace(r.CaptchaCode),
	}
}
