package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"pdfmailer/internal/config"
	"pdfmailer/internal/domain"
	"pdfmailer/internal/http/server"
	"pdfmailer/internal/infra/chrome"
	"pdfmailer/internal/infra/logging"
	"pdfmailer/internal/mail"
)

func main() {
	cfg := config.Load()
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	app, err := newApp(context.Background(), cfg, chrome.NewRenderer(cfg.Render))
	if err != nil {
		logging.Error("Failed to initialise service", "error", err)
		os.Exit(1)
	}

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

func newApp(ctx context.Context, cfg config.Config, renderer domain.Renderer) (*fiber.App, error) {
	sender, err := mail.New(ctx, cfg.Mail)
	if err != nil {
		return nil, err
	}
	if err := mail.MissingCredentials(cfg.Mail); err != nil {
		logging.Warn("Mail credentials incomplete, sends will fail", "error", err)
	}
	return server.New(server.Deps{
		Config:   cfg,
		Renderer: renderer,
		Sender:   sender,
	}), nil
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		logging.Info("Server listening", "addr", cfg.Server.ListenAddr, "target_url", cfg.Render.URL, "mail_provider", cfg.Mail.Provider)
		if err := app.Listen(cfg.Server.ListenAddr); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint
	signal.Stop(sigint)

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
