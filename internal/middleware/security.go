package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

// CORS lets the browser dashboards on origins call the API with a bearer token.
func CORS(origins []string) echo.MiddlewareFunc {
	return echoMw.CORSWithConfig(echoMw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		MaxAge: 600,
	})
}

// SecureHeaders sets the usual hardening headers on every response.
func SecureHeaders() echo.MiddlewareFunc {
	return echoMw.SecureWithConfig(echoMw.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "no-referrer",
	})
}
