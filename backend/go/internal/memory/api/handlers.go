package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"couplecoach/backend/go/internal/memory/service"
	"couplecoach/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HealthChecker 检查下游依赖是否可用。
type HealthChecker func(ctx context.Context) error

// Handler 封装了记忆相关 endpoint 的处理函数。
type Handler struct {
	contexts *service.ContextService
	erasures *service.EraseService
	health   HealthChecker
}

// NewHandler 创建一个新的 Handler 实例。health 为 nil 时健康检查总是成功。
func NewHandler(contexts *service.ContextService, erasures *service.EraseService, health HealthChecker) *Handler {
	return &Handler{contexts: contexts, erasures: erasures, health: health}
}

// ContextRequest 定义了加载上下文请求的 JSON 结构。
type ContextRequest struct {
	UserID   string `json:"userId"`
	CoupleID string `json:"coupleId"`
}

// ContextResponse 定义了加载上下文的响应。没有任何会话时不返回 loadedCount。
type ContextResponse struct {
	Context      string `json:"context"`
	SessionCount int    `json:"sessionCount"`
	LoadedCount  *int   `json:"loadedCount,omitempty"`
}

// EraseRequest 定义了清除记忆请求的 JSON 结构。
type EraseRequest struct {
	UserID     string `json:"userId"`
	DeleteType string `json:"deleteType"`
}

// EraseResponse 定义了清除记忆的响应。
type EraseResponse struct {
	Success        bool   `json:"success"`
	Deleted        string `json:"deleted"`
	ConsentRevoked bool   `json:"consentRevoked,omitempty"`
}

// deletedLabels 是每个清除范围在响应中的名称。
var deletedLabels = map[service.Scope]string{
	service.ScopePersonal: "personal_context",
	service.ScopeShared:   "shared_context",
	service.ScopeAll:      "all",
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// BuildContext 处理加载跨会话上下文的请求。
func (h *Handler) BuildContext(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	ctx, ok := h.authorize(c, req.UserID, "User ID required")
	if !ok {
		return
	}

	result, err := h.contexts.BuildContext(ctx, req.UserID, req.CoupleID)
	if err != nil {
		if errors.Is(err, service.ErrMissingUserID) {
			abortWithError(c, http.StatusBadRequest, "User ID required")
			return
		}
		logger.FromContext(ctx, logger.Nop()).WithField("error", err.Error()).Error("failed to build context")
		abortWithError(c, http.StatusInternalServerError, "Failed to load context")
		return
	}

	resp := ContextResponse{Context: result.Context, SessionCount: result.SessionCount}
	if result.SessionCount > 0 {
		loaded := result.LoadedCount
		resp.LoadedCount = &loaded
	}
	c.JSON(http.StatusOK, resp)
}

// EraseMemory 处理清除记忆的请求。
func (h *Handler) EraseMemory(c *gin.Context) {
	var req EraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	ctx, ok := h.authorize(c, req.UserID, "userId required")
	if !ok {
		return
	}

	result, err := h.erasures.EraseMemory(ctx, req.UserID, service.Scope(req.DeleteType))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrMissingUserID):
		abortWithError(c, http.StatusBadRequest, "userId required")
		return
	case errors.Is(err, service.ErrInvalidScope):
		abortWithError(c, http.StatusBadRequest, "Invalid deleteType")
		return
	default:
		// UpstreamFailure 的消息原样返回给调用方
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, EraseResponse{
		Success:        true,
		Deleted:        deletedLabels[result.Scope],
		ConsentRevoked: result.ConsentRevoked,
	})
}

// Health 在依赖可用时返回 200，否则返回 503。
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			logger.FromContext(c.Request.Context(), logger.Nop()).WithField("error", err.Error()).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// authorize 校验请求体中的 userId，并在启用认证时确认 token 的主体就是该用户，
// 或者 token 带有 operator 角色（此时日志记录 operator_id）。
// 返回的 context 带有包含用户 ID 的日志记录器。
func (h *Handler) authorize(c *gin.Context, userID, missingMessage string) (context.Context, bool) {
	if strings.TrimSpace(userID) == "" {
		abortWithError(c, http.StatusBadRequest, missingMessage)
		return nil, false
	}
	ctx := c.Request.Context()
	reqLogger := logger.FromContext(ctx, logger.Nop()).WithUser(userID)
	if subject, exists := c.Get(ContextKeyUserID); exists && subject != userID {
		if c.GetString(ContextKeyRole) != RoleOperator {
			abortWithError(c, http.StatusForbidden, "Forbidden")
			return nil, false
		}
		reqLogger = reqLogger.WithField("operator_id", subject)
	}
	ctx = logger.ToContext(ctx, reqLogger)
	c.Request = c.Request.WithContext(ctx)
	return ctx, true
}
