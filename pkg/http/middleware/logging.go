package middleware

import (
	"log"
	"strconv"
	"time"

	applogger "TemaScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request after the handler returns. A
// nil logger falls back to the standard library log.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			latency := time.Since(start)
			status := c.Response().Status
			if l != nil {
				l.Info("http request",
					applogger.String("method", req.Method),
					applogger.String("uri", req.RequestURI),
					applogger.String("remote", req.RemoteAddr),
					applogger.String("status", strconv.Itoa(status)),
					applogger.Duration("duration_ms", latency),
				)
			} else {
				log.Printf("[%s] %s %s - %d (%s)",
					req.Method, req.RequestURI, req.RemoteAddr, status, latency)
			}
			return err
		}
	}
}
