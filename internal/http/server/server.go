package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"pdfmailer/internal/config"
	"pdfmailer/internal/domain"
	"pdfmailer/internal/handlers"
	"pdfmailer/internal/http/middleware"
	"pdfmailer/internal/infra/logging"
)

// Routes that accept the profile request form.
var SendPaths = []string{"/", "/v1/send-pdf", "/.netlify/functions/send-pdf"}

// Deps are the collaborators of the HTTP application.
type Deps struct {
	Config   config.Config
	Renderer domain.Renderer
	Sender   domain.Sender
}

// New creates and configures the fiber app.
func New(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimitBytes,
		ErrorHandler:          errorHandler,
	})

	middleware.Register(app, cfg)
	RegisterRoutes(app, d)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts the send endpoint and the optional monitor.
func RegisterRoutes(app *fiber.App, d Deps) {
	svc := handlers.NewSendService(d.Config, d.Renderer, d.Sender)
	for _, p := range SendPaths {
		app.All(p, svc.HandleSend)
	}

	if d.Config.Server.EnableMonitor {
		app.Get("/ops/monitor", monitor.New())
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}
