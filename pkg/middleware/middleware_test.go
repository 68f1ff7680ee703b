package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"VidyaSync/pkg/i18n"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:          "2-M",
		PerRouteRates: map[string]string{"/slow": "1-M"},
		SkipPaths:     []string{"/metrics"},
		AddHeaders:    true,
	}, nil, nil)

	r := gin.New()
	r.Use(rl.Middleware())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/fast", ok)
	r.GET("/slow", ok)
	r.GET("/metrics", ok)

	do := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(w, req)
		return w
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"fast 1", "/fast", http.StatusOK},
		{"fast 2", "/fast", http.StatusOK},
		{"fast 3", "/fast", http.StatusTooManyRequests},
		{"slow 1", "/slow", http.StatusOK},
		{"slow 2", "/slow", http.StatusTooManyRequests},
		{"skipped", "/metrics", http.StatusOK},
		{"skipped again", "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(tt.path)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusTooManyRequests {
				assert.NotEmpty(t, w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestRateLimiterPerRouteBudgetIsSeparate(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:          "2-M",
		PerRouteRates: map[string]string{"/resources/:id/dubbings/:lang": "1-M"},
	}, nil, nil)

	r := gin.New()
	r.Use(rl.Middleware())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.POST("/resources/:id/dubbings/:lang", ok)
	r.GET("/search", ok)

	do := func(method, path string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "192.0.2.7:1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/resources/r1/dubbings/Hindi"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "/resources/r2/dubbings/Tamil"))
	// 独立配额用尽不影响默认配额
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/search"))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/search"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodGet, "/search"))
}

func TestRateLimiterWhitelistAndCustomDeny(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:           "1-H",
		WhitelistCIDRs: []string{"10.0.0.0/8"},
	}, nil, func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "slow down"})
	})
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.1.2.3:80"
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "203.0.113.9:80"
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "request %d", i)
		if want == http.StatusTooManyRequests {
			assert.Contains(t, w.Body.String(), "slow down")
		}
	}
}

func TestLanguageAndRequestLog(t *testing.T) {
	support, err := i18n.NewI18nSupport("en")
	require.NoError(t, err)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(RequestLog(zap.New(core)), LanguageMiddleware(support))
	r.GET("/lang", func(c *gin.Context) { c.String(http.StatusOK, Lang(c)) })

	tests := []struct {
		name   string
		query  string
		header string
		want   string
	}{
		{"default", "", "", "en"},
		{"query", "?lang=hi", "", "hi"},
		{"header", "", "hi-IN,hi;q=0.9", "hi"},
		{"unsupported", "?lang=fr", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/lang"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		})
	}

	assert.Equal(t, len(tests), logs.FilterMessage("request").Len())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/lang", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
