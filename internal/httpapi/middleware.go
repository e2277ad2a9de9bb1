package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/park285/checkers-arena/internal/identity"
	"github.com/park285/checkers-arena/internal/match"
	"github.com/park285/checkers-arena/internal/obslog"
	"github.com/park285/checkers-arena/pkg/checkersdto"
)

const identityKey = "identity"

// requireIdentity resolves the bearer token and stores the player on the context.
func requireIdentity(coord *match.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := identity.BearerToken(c.GetHeader("Authorization"))
		player, err := coord.Authenticate(c.Request.Context(), token)
		if err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, identity.ErrUnauthorized) {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, checkersdto.Fail(coord.Message(err)))
			return
		}
		c.Set(identityKey, player)
		c.Next()
	}
}

func playerFrom(c *gin.Context) identity.PlayerID {
	v, _ := c.Get(identityKey)
	id, _ := v.(identity.PlayerID)
	return id
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if id := playerFrom(c); id != "" {
			fields = append(fields, obslog.Identity(string(id)))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			obslog.L().Warn("http_request", fields...)
			return
		}
		obslog.L().Debug("http_request", fields...)
	}
}
