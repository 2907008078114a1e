package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPermissionCatalog(t *testing.T) {
	items := buildPermissionCatalog([]routeSpec{
		{method: "get", path: "/accounting/overview"},
		{method: "POST", path: "/accounting/obligations/:id/settle"},
		{method: "GET", path: "/affiliates/:id"},
		{method: "GET", path: "/authz/me"},
		{method: "GET", path: "/authz/me"},
		{method: "", path: "/broken"},
	})
	require.Len(t, items, 4)

	byPermission := make(map[string]permissionItem, len(items))
	for _, item := range items {
		byPermission[item.Permission] = item
	}
	assert.Equal(t, "accounting", byPermission["GET:/admin/accounting/overview"].Module)
	assert.Equal(t, "accounting", byPermission["POST:/admin/accounting/obligations/:id/settle"].Module)
	assert.Equal(t, "authz", byPermission["GET:/admin/authz/me"].Module)
	assert.Equal(t, "accounting", items[0].Module, "catalog should be sorted by module")
	assert.Equal(t, "authz", items[len(items)-1].Module)
}

func TestProtectedRoutesExcludeLogin(t *testing.T) {
	for _, route := range protectedRoutes(nil) {
		assert.NotEqual(t, "/login", route.path)
		assert.NotEqual(t, "/captcha/image", route.path)
	}
}

func TestPermissionModule(t *testing.T) {
	cases := map[string]string{
		"":                      "system",
		"/admin":                "admin",
		"/admin/affiliates/:id": "affiliates",
		"/admin/audit-logs":     "audit-logs",
		"/admin/authz/roles":    "authz",
		"/other/path":           "other",
	}
	for input, want := range cases {
		assert.Equal(t, want, permissionModule(input), input)
	}
}
