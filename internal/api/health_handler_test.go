package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func serveHealth(h *HealthHandler, path string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/ping", h.Ping)
	router.GET("/ready", h.Ready)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealth_Ping(t *testing.T) {
	rr := serveHealth(NewHealthHandler(nil, nil), "/ping")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", decode[map[string]string](t, rr)["message"])
}

func TestHealth_Ready(t *testing.T) {
	healthyDB := func(context.Context) error { return nil }

	t.Run("AllUp", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		mock.ExpectPing().SetVal("PONG")

		rr := serveHealth(NewHealthHandler(redisClient, healthyDB), "/ready")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RedisDown", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		mock.ExpectPing().SetErr(errors.New("connection refused"))

		rr := serveHealth(NewHealthHandler(redisClient, healthyDB), "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "redis", decode[map[string]string](t, rr)["dependency"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseDown", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()

		rr := serveHealth(NewHealthHandler(redisClient, func(context.Context) error {
			return errors.New("no reachable servers")
		}), "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "database", decode[map[string]string](t, rr)["dependency"])
		// redis is never reached
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NothingConfigured", func(t *testing.T) {
		rr := serveHealth(NewHealthHandler(nil, nil), "/ready")
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
