package config

import (
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware installs request logging through log, panic recovery and CORS.
func SetupMiddleware(e *echo.Echo, log *logger.Logger) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Warn("%s %s %d %s: %v", v.Method, v.URIPath, v.Status, v.Latency, v.Error)
				return nil
			}
			log.Info("%s %s %d %s", v.Method, v.URIPath, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
}
