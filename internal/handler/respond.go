// Package handler adapts the service layer to Echo.  Handlers read ids
// from the query string, decode bodies into service inputs and turn
// *service.Error values into {"error","code"} responses.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/middleware"
	"github.com/rehanisg222/deploymentcrm/internal/service"
)

var errBadJSON = &service.Error{Status: http.StatusBadRequest, Code: "INVALID_JSON", Message: "Request body must be a JSON object"}

// respondError writes err in the API's error shape.  Unexpected errors are
// logged and reported as 500 INTERNAL_ERROR.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		return c.JSON(se.Status, echo.Map{"error": se.Message, "code": se.Code})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": "Internal server error: " + err.Error(),
		"code":  "INTERNAL_ERROR",
	})
}

// decodeBody unmarshals the request body into v.  Field-typed inputs keep
// the raw JSON of each property for the service to validate.
func decodeBody(c echo.Context, v any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		return errBadJSON
	}
	return nil
}

// principal returns the caller resolved by middleware.LoadPrincipal.  A
// route mounted without it yields the zero principal, which is denied
// everything.
func principal(c echo.Context) access.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

// queryID parses the required ?id= parameter.
func queryID(c echo.Context) (uint64, error) {
	id, ok := service.ParseID(c.QueryParam("id"))
	if !ok {
		return 0, service.ErrInvalidID
	}
	return id, nil
}
