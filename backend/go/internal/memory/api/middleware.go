package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"couplecoach/backend/go/internal/models"
	"couplecoach/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID 携带请求的追踪 ID。
	HeaderRequestID = "X-Request-ID"
	// ContextKeyUserID 是认证中间件在 gin 上下文中存放 token 主体的键。
	ContextKeyUserID = "userID"
	// ContextKeyRole 存放 token 的 role 声明。
	ContextKeyRole = "role"

	// RoleOperator 的 token 可以代任何用户操作，用于客服工具。
	RoleOperator = "operator"
)

// RequestLogger 为每个请求分配追踪 ID，把请求级别的 Logger 放入 context，
// 并在请求结束时记录方法、路径、状态码和耗时。
func RequestLogger(base *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := c.GetHeader(HeaderRequestID)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Header(HeaderRequestID, traceID)

		reqLogger := base.WithTrace(traceID)
		c.Request = c.Request.WithContext(logger.ToContext(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		entry := logger.FromContext(c.Request.Context(), reqLogger).WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     status,
			LatencyMS:  time.Since(start).Milliseconds(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request completed")
		case status >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// AuthMiddleware 创建一个 Gin 中间件，用于验证 JWT。
// token 的 sub 声明会被存放在 ContextKeyUserID 下，由处理函数与请求体中的 userId 比对；
// role 声明存放在 ContextKeyRole 下。
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		// 我们期望的格式是 "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, http.StatusUnauthorized, "Malformed authorization header")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			// 确保 token 的签名方法是我们期望的
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			abortWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		subject, ok := claims["sub"].(string)
		if !ok || subject == "" {
			abortWithError(c, http.StatusUnauthorized, "Invalid token claims")
			return
		}
		c.Set(ContextKeyUserID, subject)
		if role, ok := claims["role"].(string); ok && role != "" {
			c.Set(ContextKeyRole, role)
		}

		c.Next()
	}
}
