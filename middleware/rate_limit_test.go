package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newLimitedRouter(perMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/gallery", RateLimitMiddleware(perMinute), func(ctx *gin.Context) {
		ctx.Status(http.StatusCreated)
	})
	return r
}

func send(r http.Handler, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodPost, "/gallery", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddlewareBlocksAfterBurst(t *testing.T) {
	r := newLimitedRouter(4) // burst of 2

	assert.Equal(t, http.StatusCreated, send(r, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusCreated, send(r, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send(r, "10.0.0.1:1234"))

	// buckets are per client
	assert.Equal(t, http.StatusCreated, send(r, "10.0.0.2:1234"))
}

func TestRateLimitMiddlewareErrorBody(t *testing.T) {
	r := newLimitedRouter(1)
	send(r, "10.0.0.3:1")

	req := httptest.NewRequest(http.MethodPost, "/gallery", nil)
	req.RemoteAddr = "10.0.0.3:1"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Too Many Requests","message":"muitas requisições, tente novamente em instantes"}`, w.Body.String())
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	r := newLimitedRouter(0)
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusCreated, send(r, "10.0.0.4:1"))
	}
}

func TestLimiterSetPrunesOnlyAfterIdleTTL(t *testing.T) {
	set := newLimiterSet(rate.Every(time.Second), 1)
	set.get("10.0.0.5")
	set.limiters["10.0.0.5"].expires = time.Now().Add(-time.Second)

	// a recent prune leaves expired buckets in place
	set.get("10.0.0.6")
	assert.Len(t, set.limiters, 2)

	set.lastPrune = time.Now().Add(-limiterIdleTTL)
	set.get("10.0.0.6")
	assert.Len(t, set.limiters, 1)
	assert.Contains(t, set.limiters, "10.0.0.6")
	assert.WithinDuration(t, time.Now(), set.lastPrune, time.Second)
}

func TestLimiterSetReusesBucket(t *testing.T) {
	set := newLimiterSet(rate.Every(time.Minute), 1)
	first := set.get("10.0.0.7")
	assert.Same(t, first, set.get("10.0.0.7"))
	assert.NotSame(t, first, set.get("10.0.0.8"))
}
