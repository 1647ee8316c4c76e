package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	newLimitedRouter := func(limiter *RateLimiter) *gin.Engine {
		router := setupTestRouter()
		router.Use(limiter.Handler())
		router.GET("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})
		return router
	}

	t.Run("Requests within burst succeed", func(t *testing.T) {
		// 600 rpm gives a burst of 60
		router := newLimitedRouter(NewRateLimiter(600))

		for i := 0; i < 10; i++ {
			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("Burst exhaustion returns 429", func(t *testing.T) {
		// 10 rpm gives a burst of 1: the second immediate request fails
		router := newLimitedRouter(NewRateLimiter(10))

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		req, _ = http.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("Clients are limited independently", func(t *testing.T) {
		router := newLimitedRouter(NewRateLimiter(10))

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.0.0.3:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		// A different client still has its own budget
		req, _ = http.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.0.0.4:1234"
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Nil limiter is a passthrough", func(t *testing.T) {
		router := newLimitedRouter(NewRateLimiter(0))

		for i := 0; i < 20; i++ {
			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = "10.0.0.5:1234"
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}
