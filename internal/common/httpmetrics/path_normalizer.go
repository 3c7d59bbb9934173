package httpmetrics

import "strings"

// unmatchedRoute labels every path the router does not serve, so scanners
// can not grow the label set.
const unmatchedRoute = "unmatched"

var staticRoutes = map[string]struct{}{
	"/health":           {},
	"/metrics":          {},
	"/api/auth/signup":  {},
	"/api/auth/login":   {},
	"/api/auth/refresh": {},
	"/api/auth/logout":  {},
	"/api/company":      {},
	"/api/company/me":   {},
	"/api/departments":  {},
}

// idRoutes are prefixes followed by exactly one identifier segment.
var idRoutes = []struct {
	prefix   string
	template string
}{
	{"/api/departments/", "/api/departments/{id}"},
}

// NormalizePath maps a request path to the route label it is counted under.
func NormalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := staticRoutes[path]; ok {
		return path
	}
	for _, route := range idRoutes {
		id, ok := strings.CutPrefix(path, route.prefix)
		if ok && id != "" && !strings.Contains(id, "/") {
			return route.template
		}
	}
	return unmatchedRoute
}
