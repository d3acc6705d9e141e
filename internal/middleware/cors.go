package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/movie-catalog/internal/config"
)

// CORS enforces an origin allow-list.  Requests without an Origin header
// pass untouched; allowed origins get the usual CORS headers (and
// preflights are answered); any other origin is refused with 403.
func CORS(cfg config.CORSConfig) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}
	cors := echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType},
		MaxAge:       600,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := cors(next)
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin != "" && !allowed[origin] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "origin not allowed"})
			}
			return h(c)
		}
	}
}
