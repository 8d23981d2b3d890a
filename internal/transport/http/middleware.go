package http

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"coldchain/compliance/internal/auth"
)

const principalKey = "principal"

// AuthMiddleware accepts a dashboard bearer token or a device API key.
type AuthMiddleware struct {
	jwt  *auth.JWTService
	keys *auth.Authenticator
}

func NewAuthMiddleware(jwt *auth.JWTService, keys *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, keys: keys}
}

func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.Fields(header)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				abortWithError(c, http.StatusUnauthorized, kindUnauthorized, "invalid authorization header")
				return
			}
			m.withToken(c, parts[1])
			return
		}

		if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
			p, ok := m.keys.Validate(c.Request.Context(), apiKey)
			if !ok {
				abortWithError(c, http.StatusUnauthorized, kindUnauthorized, "invalid API key")
				return
			}
			c.Set(principalKey, p)
			c.Next()
			return
		}

		// Browsers cannot set headers on a websocket handshake.
		if websocket.IsWebSocketUpgrade(c.Request) {
			if token := c.Query("token"); token != "" {
				m.withToken(c, token)
				return
			}
		}

		abortWithError(c, http.StatusUnauthorized, kindUnauthorized, "missing credentials")
	}
}

func (m *AuthMiddleware) withToken(c *gin.Context, token string) {
	p, err := m.jwt.ParseToken(token)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, kindUnauthorized, "invalid token")
		return
	}
	c.Set(principalKey, p)
	c.Next()
}

// RequireRoles rejects principals outside roles. It must run after
// Authenticate.
func RequireRoles(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principalFrom(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, kindUnauthorized, "missing credentials")
			return
		}
		if !slices.Contains(roles, p.Role) {
			abortWithError(c, http.StatusForbidden, kindForbidden, "role "+string(p.Role)+" may not perform this action")
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (auth.Principal, bool) {
	raw, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := raw.(auth.Principal)
	return p, ok
}

func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if p, ok := principalFrom(c); ok {
			fields = append(fields, zap.String("principal", p.Subject))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}
