package api

import (
	"couplecoach/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	PathHealth  = "/healthz"
	PathContext = "/api/v1/memory/context"
	PathErase   = "/api/v1/memory/erase"
)

// BreakerExemptPaths 返回不经过熔断器、也不计入失败的路由：加载上下文和健康检查。
func BreakerExemptPaths() []string {
	return []string{PathHealth, PathContext}
}

// SetupRouter 配置和返回一个 Gin 引擎实例。jwtSecret 为空时不启用认证。
// trustedProxies 为空时 gin 不采信任何转发头。
func SetupRouter(h *Handler, base *logger.Logger, jwtSecret string, trustedProxies []string) (*gin.Engine, error) {
	if base == nil {
		base = logger.Nop()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery(), RequestLogger(base))

	r.GET(PathHealth, h.Health)

	memory := r.Group("/")
	if jwtSecret != "" {
		memory.Use(AuthMiddleware(jwtSecret))
	}
	memory.POST(PathContext, h.BuildContext)
	memory.POST(PathErase, h.EraseMemory)

	return r, nil
}
