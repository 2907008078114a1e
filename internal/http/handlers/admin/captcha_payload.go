package admin

import (
	handlershared "github.com/signaldesk-ledger/internal/http/handlers/shared"
)

// CaptchaPayloadRequest 登录请求中的验证码字段
type CaptchaPayloadRequest = handlershared.CaptchaPayloadRequest
