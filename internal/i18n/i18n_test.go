package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query  string
		header string
		want   string
	}{
		{header: "", want: LocaleZH},
		{header: "en-US,en;q=0.9", want: LocaleEN},
		{header: "fr-FR, zh-TW;q=0.8", want: LocaleTW},
		{query: "en", header: "zh-CN", want: LocaleEN},
		{header: "pt-BR", want: LocaleZH},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/?lang="+tc.query, nil)
		if tc.header != "" {
			c.Request.Header.Set("Accept-Language", tc.header)
		}
		if got := ResolveLocale(c); got != tc.want {
			t.Fatalf("query=%q header=%q: want %s got %s", tc.query, tc.header, tc.want, got)
		}
	}
}

func TestTFallback(t *testing.T) {
	if got := T(LocaleTW, "error.invalid_rate"); got != messagesZH["error.invalid_rate"] {
		t.Fatalf("expected fallback to default locale, got %q", got)
	}
	if got := T(LocaleEN, "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("expected key fallback, got %q", got)
	}
	if got := Sprintf(LocaleEN, "error.too_many_requests_retry", 30); got != "Too many requests, retry in 30 seconds" {
		t.Fatalf("unexpected sprintf result %q", got)
	}
}

func TestCatalogKeysCovered(t *testing.T) {
	for key := range messagesZH {
		if _, ok := messagesEN[key]; !ok {
			t.Fatalf("en-US missing key %s", key)
		}
	}
}
