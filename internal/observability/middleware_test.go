package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRequestMetricsExcludeScrapeEndpoint(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	r.Use(RequestMetricsMiddleware("scrape-test"))
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/metrics", ok)
	r.GET("/health", ok)

	for _, path := range []string{"/metrics", "/metrics", "/metrics", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	health := testutil.ToFloat64(httpRequests.WithLabelValues("scrape-test", "GET", "/health", "200"))
	if health != 1 {
		t.Fatalf("health requests counted: got=%v want=1", health)
	}
	scrapes := testutil.ToFloat64(httpRequests.WithLabelValues("scrape-test", "GET", "/metrics", "200"))
	if scrapes != 0 {
		t.Fatalf("scrape requests counted: got=%v want=0", scrapes)
	}
}

func TestRequestPathFallsBackToRawPath(t *testing.T) {
	r := gin.New()
	r.Use(RequestMetricsMiddleware("fallback-test"))

	req := httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	misses := testutil.ToFloat64(httpRequests.WithLabelValues("fallback-test", "GET", "/no-such-route", "404"))
	if misses != 1 {
		t.Fatalf("unmatched requests counted: got=%v want=1", misses)
	}
}
