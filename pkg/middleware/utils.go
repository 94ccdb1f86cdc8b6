package middleware

import "github.com/labstack/echo/v4"

// UnmatchedRoute labels requests that did not reach a registered route
const UnmatchedRoute = "unmatched"

// MatchedRoute returns the registered path template serving the request,
// which keeps metric labels bounded when paths carry upload identifiers.
func MatchedRoute(ctx echo.Context) string {
	pathx := ctx.Path()
	method := ctx.Request().Method
	for _, r := range ctx.Echo().Routes() {
		if pathx == r.Path && r.Method == method {
			return r.Path
		}
	}
	return UnmatchedRoute
}
