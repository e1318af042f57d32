package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/leads/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leads/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/leads/:id", "200")))
}

func TestLeadCounters(t *testing.T) {
	m := New()
	m.LeadsMutated("bulk_delete", 3)
	m.LeadsMutated("bulk_delete", 2)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.LeadMutations.WithLabelValues("bulk_delete")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.LeadsExported("csv", 42)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lead_export_rows")
}
