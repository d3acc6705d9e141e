// Package router registers the HTTP routes of the movie API.
package router

import (
	"expvar"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-catalog/internal/handler"
	"github.com/iliyamo/movie-catalog/internal/repository"
)

// RegisterRoutes registers the operational endpoints: the health check
// used by load balancers and the expvar dump at /debug/vars.
func RegisterRoutes(e *echo.Echo, repo *repository.MovieRepo) {
	e.GET("/healthz", handler.Health(repo))
	e.GET("/debug/vars", echo.WrapHandler(expvar.Handler()))
}

// RegisterMovies registers the /movies resource.
func RegisterMovies(e *echo.Echo, h *handler.MovieHandler) {
	g := e.Group("/movies")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Patch)
	g.DELETE("/:id", h.Delete)
}
