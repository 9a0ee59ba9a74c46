package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler reports whether the backing services answer.
type HealthHandler struct {
	redisClient *redis.Client                   // nil when rate limiting is off
	dbPing      func(ctx context.Context) error // nil for the in-memory store
}

func NewHealthHandler(redisClient *redis.Client, dbPing func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{
		redisClient: redisClient,
		dbPing:      dbPing,
	}
}

func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Ready answers 503 naming the first dependency that fails its ping.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			log.WithError(err).Warn("readiness: database ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "dependency": "database"})
			return
		}
	}
	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("readiness: redis ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "dependency": "redis"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
