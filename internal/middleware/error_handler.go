package middleware

import (
	"net/http"

	"github.com/Eursukkul/food-rescue/listing-service/internal/dto"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ErrorHandler renders every error as {"message","code"}. Handlers attach a
// dto.ErrorResponse to carry a code; anything that is not an *echo.HTTPError
// is reported as a 500 without leaking its text.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		body := dto.ErrorResponse{Message: http.StatusText(code)}

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			switch m := he.Message.(type) {
			case dto.ErrorResponse:
				body = m
			case string:
				body = dto.ErrorResponse{Message: m}
			default:
				body = dto.ErrorResponse{Message: http.StatusText(code)}
			}
			if he.Internal != nil && code >= http.StatusInternalServerError {
				log.WithError(he.Internal).WithField("uri", c.Request().RequestURI).Error("request failed")
			}
		} else {
			log.WithError(err).WithField("uri", c.Request().RequestURI).Error("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}
