// Package handler adapts HTTP requests onto the check-in services.  Handlers
// bind and shape JSON; every rule lives in the service package.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/middleware"
	"github.com/iliyamo/checkin-facility/internal/model"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation: http.StatusBadRequest,
	apperr.KindNotFound:   http.StatusNotFound,
	apperr.KindConflict:   http.StatusConflict,
	apperr.KindForbidden:  http.StatusForbidden,
}

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
}

// writeError renders err.  Domain errors map by kind; anything else is
// logged and reported as a 500 without detail.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	if e, ok := apperr.As(err); ok {
		status, known := kindStatus[e.Kind]
		if known {
			return c.JSON(status, errorBody{
				Error:      e.Message,
				Code:       string(e.Code),
				EntityType: e.EntityType,
				EntityID:   e.EntityID,
			})
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, errorBody{Error: http.StatusText(he.Code), Code: "HTTP_ERROR"})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL"})
}

// bind decodes the request body into v, reporting malformed JSON as a
// validation error.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Validation("malformed request body")
	}
	return nil
}

// actor returns the authenticated caller.  Routes are always mounted
// behind JWTAuth, so a missing actor means a wiring mistake.
func actor(c echo.Context) (model.Actor, error) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		return model.Actor{}, echo.ErrUnauthorized
	}
	return a, nil
}
