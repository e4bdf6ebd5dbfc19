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

func TestLifecycleCounters(t *testing.T) {
	c := New()

	c.OrderCreated()
	c.OrderCreated()
	c.ReservationFailed("out_of_stock")
	c.DeliveryTransitioned("DISPATCHED")
	c.PartialFailure("PartialOrder")
	c.Compensated("release_stock", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ordersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reservationFailures.WithLabelValues("out_of_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveryTransitions.WithLabelValues("DISPATCHED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.partialFailures.WithLabelValues("PartialOrder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.compensations.WithLabelValues("release_stock", "ok")))
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.OrderCreated()
		c.ReservationFailed("x")
		c.DeliveryTransitioned("x")
		c.PartialFailure("x")
		c.Compensated("x", false)
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := New()
	router := gin.New()
	router.Use(c.Middleware())
	router.GET("/health", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(c.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "unmatched", "404")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "food_delivery_http_requests_total")
}
