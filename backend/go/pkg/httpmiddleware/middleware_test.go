package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"file-organizer/backend/go/pkg/logger"
	"file-organizer/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(ratelimiter.NewKeyedTokenBucket(0.001, 2, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestRecovery(t *testing.T) {
	log := logger.Discard()
	r := gin.New()
	r.Use(RequestLogger(log), Recovery(log))
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "kaboom")
}
