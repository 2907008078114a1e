package router

import (
	"sort"
	"strings"

	"github.com/signaldesk-ledger/internal/authz"
)

// permissionItem 权限目录条目，permission 形如 GET:/admin/affiliates
type permissionItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildPermissionCatalog 由受保护路由表生成可分配的权限目录
func buildPermissionCatalog(routes []routeSpec) []permissionItem {
	seen := make(map[string]bool, len(routes))
	items := make([]permissionItem, 0, len(routes))
	for _, route := range routes {
		method := strings.ToUpper(strings.TrimSpace(route.method))
		object := authz.NormalizeObject(adminBasePath + route.path)
		permission := method + ":" + object
		if method == "" || seen[permission] {
			continue
		}
		seen[permission] = true
		items = append(items, permissionItem{
			Module:     permissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Method < b.Method
	})
	return items
}

// permissionModule 取 /admin 之后的第一段作为模块名
func permissionModule(object string) string {
	segments := strings.Split(strings.Trim(strings.TrimSpace(object), "/"), "/")
	switch {
	case segments[0] == "":
		return "system"
	case segments[0] != "admin" || len(segments) == 1:
		return segments[0]
	default:
		return segments[1]
	}
}
