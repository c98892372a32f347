package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	"pdfmailer/internal/config"
	"pdfmailer/internal/infra/logging"
)

// HealthPath is the liveness probe endpoint.
const HealthPath = "/ops/health"

// Register attaches global middleware to the app.
func Register(app *fiber.App, cfg config.Config) {
	app.Use(recover.New())

	// The form is posted from the static profile site, which may live on
	// another origin than the function.
	app.Use(cors.New(cors.Config{
		AllowMethods: "POST,OPTIONS",
	}))

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint: HealthPath,
	}))

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logging.Info("Request handled",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"took_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return err
	})
}
