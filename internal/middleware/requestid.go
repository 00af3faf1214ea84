package middleware

import (
	"github.com/google/uuid"
	"github.com/kojileo/datebank/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request with an id and attaches a logger
// carrying it.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
				c.Request().Header.Set(RequestIDHeader, requestID)
			}
			c.Response().Header().Set(RequestIDHeader, requestID)

			logger.Attach(c, logger.Default().With(zap.String("request_id", requestID)))
			return next(c)
		}
	}
}
