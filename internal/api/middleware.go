package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carrega o usuário já autenticado pela camada de borda
const UserIDHeader = "X-User-ID"

const userIDKey = "userID"

// RequestLogger registra método, caminho, status e latência de cada requisição
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"latency", time.Since(start).String())
	}
}

// UserIDMiddleware lê o usuário do cabeçalho; ausente ou inválido vira 401
func UserIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func getUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
