package handler

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/food-rescue/listing-service/internal/dto"
	"github.com/Eursukkul/food-rescue/listing-service/internal/service"
	"github.com/labstack/echo/v4"
)

var statusByKind = map[service.ErrorKind]int{
	service.KindValidation:         http.StatusBadRequest,
	service.KindNotFound:           http.StatusNotFound,
	service.KindInvalidRole:        http.StatusForbidden,
	service.KindStateConflict:      http.StatusConflict,
	service.KindNotOwner:           http.StatusForbidden,
	service.KindPreviouslyExpired:  http.StatusForbidden,
	service.KindReservationExpired: http.StatusConflict,
	service.KindUnauthorized:       http.StatusUnauthorized,
	service.KindDuplicate:          http.StatusConflict,
}

// toHTTPError maps service errors to their status; anything else is a 500
// with the cause kept for the error handler's log.
func toHTTPError(err error) error {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		status, ok := statusByKind[svcErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return echo.NewHTTPError(status, dto.ErrorResponse{Message: svcErr.Message, Code: svcErr.Code})
	}
	return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
}
