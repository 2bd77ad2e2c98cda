package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProbeRouter(checker *Checker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthz", checker.HealthHandler())
	router.GET("/readyz", checker.ReadinessHandler())

	return router
}

func TestHealthHandler(t *testing.T) {
	router := newProbeRouter(NewChecker("1.2.3"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1.2.3")
	assert.Contains(t, w.Body.String(), string(StatusHealthy))
}

func TestReadinessHandlerAllHealthy(t *testing.T) {
	checker := NewChecker("test")
	checker.RegisterCheck("always-up", func(context.Context) error { return nil })

	w := httptest.NewRecorder()
	newProbeRouter(checker).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "always-up")
}

func TestReadinessHandlerFailingCheck(t *testing.T) {
	checker := NewChecker("test")
	checker.RegisterCheck("always-up", func(context.Context) error { return nil })
	checker.RegisterCheck("broken", func(context.Context) error {
		return errors.New("dependency down")
	})

	w := httptest.NewRecorder()
	newProbeRouter(checker).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "dependency down")
}

func TestRedisCheck(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	require.NoError(t, RedisCheck(client)(context.Background()))

	server.Close()
	assert.Error(t, RedisCheck(client)(context.Background()))
}

func TestKafkaCheck(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	require.NoError(t, KafkaCheck([]string{listener.Addr().String()})(context.Background()))
	assert.Error(t, KafkaCheck([]string{"127.0.0.1:1"})(context.Background()))
	assert.Error(t, KafkaCheck(nil)(context.Background()))
}
