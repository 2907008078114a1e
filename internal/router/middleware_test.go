package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

type stubAdminRepo struct {
	admins map[uint]*models.Admin
}

func (r *stubAdminRepo) GetByUsername(username string) (*models.Admin, error) {
	for _, admin := range r.admins {
		if admin.Username == username {
			return admin, nil
		}
	}
	return nil, nil
}

func (r *stubAdminRepo) GetByID(id uint) (*models.Admin, error) {
	return r.admins[id], nil
}

func (r *stubAdminRepo) List() ([]models.Admin, error) { return nil, nil }
func (r *stubAdminRepo) Create(*models.Admin) error    { return nil }
func (r *stubAdminRepo) Update(*models.Admin) error    { return nil }

func signTestToken(t *testing.T, adminID uint, version uint64, issuedAt time.Time) string {
	t.Helper()
	claims := service.JWTClaims{
		AdminID:      adminID,
		Username:     "finance01",
		TokenVersion: version,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newAuthTestEngine(repo *stubAdminRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/api/v1/admin/accounting/balance", JWTAuthMiddleware(testSecret, repo), func(c *gin.Context) {
		response.Success(c, gin.H{
			"admin_id": c.GetUint(adminIDKey),
			"username": c.GetString(adminUsernameKey),
			"is_super": c.GetBool(adminIsSuperKey),
		})
	})
	return r
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"  Bearer   abc.def  ", "abc.def", true},
		{"bearer abc.def", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"Basic dXNlcjpwdw==", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := bearerToken(tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.want, got, tc.header)
	}
}

func TestIssuedAfter(t *testing.T) {
	boundary := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, issuedAfter(nil, 0))
	assert.False(t, issuedAfter(nil, boundary.Unix()))
	assert.True(t, issuedAfter(jwt.NewNumericDate(boundary), boundary.Unix()))
	assert.False(t, issuedAfter(jwt.NewNumericDate(boundary.Add(-time.Second)), boundary.Unix()))
}

func TestJWTAuthMiddleware(t *testing.T) {
	now := time.Now()
	revokedAt := now.Add(-time.Minute)
	repo := &stubAdminRepo{admins: map[uint]*models.Admin{
		1: {ID: 1, Username: "finance01", TokenVersion: 2, IsSuper: true},
		2: {ID: 2, Username: "ops", Disabled: true},
		3: {ID: 3, Username: "auditor", TokenVersion: 5, TokenInvalidBefore: &revokedAt},
	}}
	r := newAuthTestEngine(repo)

	cases := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"missing header", "", response.CodeUnauthorized},
		{"garbage token", "Bearer not-a-jwt", response.CodeUnauthorized},
		{"unknown admin", "Bearer " + signTestToken(t, 99, 0, now), response.CodeUnauthorized},
		{"disabled admin", "Bearer " + signTestToken(t, 2, 0, now), response.CodeUnauthorized},
		{"stale version", "Bearer " + signTestToken(t, 1, 1, now), response.CodeUnauthorized},
		{"issued before revoke", "Bearer " + signTestToken(t, 3, 5, now.Add(-time.Hour)), response.CodeUnauthorized},
		{"valid", "Bearer " + signTestToken(t, 1, 2, now), response.CodeOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/accounting/balance", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			body := decodeBody(t, w)
			assert.EqualValues(t, tc.wantCode, body["status_code"])
		})
	}
}

func TestJWTAuthMiddlewareSetsIdentity(t *testing.T) {
	repo := &stubAdminRepo{admins: map[uint]*models.Admin{
		1: {ID: 1, Username: "finance01", TokenVersion: 2, IsSuper: true},
	}}
	r := newAuthTestEngine(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/accounting/balance", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, 1, 2, time.Now()))
	r.ServeHTTP(w, req)

	data, ok := decodeBody(t, w)["data"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, data["admin_id"])
	assert.Equal(t, "finance01", data["username"])
	assert.Equal(t, true, data["is_super"])
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		response.Error(c, response.CodeConflict, "conflict")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
	data, _ := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "req-123", data["request_id"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{
		AllowedOrigins:   []string{"https://desk.example.com"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://desk.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestResolveAllowedOrigin(t *testing.T) {
	assert.Equal(t, "*", resolveAllowedOrigin("https://a.example.com", []string{"*"}, false))
	assert.Equal(t, "https://a.example.com", resolveAllowedOrigin("https://a.example.com", []string{"*"}, true))
	assert.Equal(t, "https://A.example.com", resolveAllowedOrigin("https://A.example.com", []string{"https://a.example.com"}, false))
	assert.Empty(t, resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false))
	assert.Empty(t, resolveAllowedOrigin("", []string{"https://a.example.com"}, false))
}
