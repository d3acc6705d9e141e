package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-catalog/internal/repository"
)

// Health is used by load balancers and monitoring to verify the service
// is running.  It also reports how many movies are stored.
func Health(repo *repository.MovieRepo) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status": "ok",
			"movies": repo.Len(c.Request().Context()),
		})
	}
}
