package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"username":" Finance@Desk "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("username")(c)
	if key != "finance@desk|1.2.3.4" {
		t.Fatalf("key want finance@desk|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Finance@Desk") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ping", nil))
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 429 {
		t.Fatalf("second request should hit local limiter, got status_code %d", resp.StatusCode)
	}
}

func TestLocalRateLimiterBlockAndRecover(t *testing.T) {
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newLocalRateLimiter(RateLimitRule{WindowSeconds: 60, MaxRequests: 2, BlockSeconds: 300})
	limiter.now = func() time.Time { return current }

	for i := 0; i < 2; i++ {
		if ok, _ := limiter.allow("ip"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	ok, wait := limiter.allow("ip")
	if ok || wait != 300 {
		t.Fatalf("third request should be blocked for 300s, got ok=%v wait=%d", ok, wait)
	}
	if ok, _ := limiter.allow("other-ip"); !ok {
		t.Fatalf("other keys must not be affected")
	}

	current = current.Add(2 * time.Minute)
	if ok, wait := limiter.allow("ip"); ok || wait != 180 {
		t.Fatalf("block should still hold with 180s left, got ok=%v wait=%d", ok, wait)
	}
	current = current.Add(4 * time.Minute)
	if ok, _ := limiter.allow("ip"); !ok {
		t.Fatalf("request after block expiry should pass")
	}
}

func TestRateLimitRuleEnabled(t *testing.T) {
	cases := []struct {
		rule RateLimitRule
		want bool
	}{
		{rule: RateLimitRule{WindowSeconds: 60, MaxRequests: 5}, want: true},
		{rule: RateLimitRule{WindowSeconds: 0, MaxRequests: 5}, want: false},
		{rule: RateLimitRule{WindowSeconds: 60}, want: false},
	}
	for _, tc := range cases {
		if got := tc.rule.enabled(); got != tc.want {
			t.Fatalf("enabled(%+v) want %v got %v", tc.rule, tc.want, got)
		}
	}
}

func TestCeilSeconds(t *testing.T) {
	if got := ceilSeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("want 2 got %d", got)
	}
	if got := ceilSeconds(0); got != 1 {
		t.Fatalf("zero duration should round to 1, got %d", got)
	}
}

func TestRateLimiterFuncNeverErrors(t *testing.T) {
	limiter := rateLimiterFunc(func(key string) (bool, int) { return key == "ok", 7 })
	ok, wait, err := limiter.allow(context.Background(), "ok")
	if err != nil || !ok || wait != 7 {
		t.Fatalf("unexpected result ok=%v wait=%d err=%v", ok, wait, err)
	}
}
