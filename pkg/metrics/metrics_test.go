package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCounters(t *testing.T) {
	reg := Get()
	require.Same(t, reg, Get())

	before := testutil.ToFloat64(reg.webhookEvents.WithLabelValues("MONNIFY", "duplicate"))
	reg.WebhookEvent("MONNIFY", "duplicate")
	assert.Equal(t, before+1, testutil.ToFloat64(reg.webhookEvents.WithLabelValues("MONNIFY", "duplicate")))

	reg.OpsCounts(3, 7)
	assert.Equal(t, float64(3), testutil.ToFloat64(reg.stuckPayouts))
	assert.Equal(t, float64(7), testutil.ToFloat64(reg.stuckHeldVerifies))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `garka_http_requests_total{method="GET",route="/ping",status="204"}`)
}
