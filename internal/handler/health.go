package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the unauthenticated liveness probe.
func Health(c echo.Context) error {
	return ok(c, http.StatusOK, echo.Map{"status": "ok"})
}
