package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LoggingMiddleware возвращает middleware для логирования запросов.
func LoggingMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start).String(),
			"ip":      c.IP(),
		})

		if err != nil {
			entry.WithError(err).Warn("request failed")
			return err
		}

		entry.Info("request")
		return nil
	}
}
