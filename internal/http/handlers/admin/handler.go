package admin

import "github.com/signaldesk-ledger/internal/provider"

// Handler 后台接口处理器，账务、义务审核、推广者与权限接口共用同一个容器
type Handler struct {
	*provider.Container
}

// New 基于已装配的服务容器创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
