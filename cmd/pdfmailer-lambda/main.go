package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"pdfmailer/internal/config"
	"pdfmailer/internal/handlers"
	"pdfmailer/internal/infra/chrome"
	"pdfmailer/internal/infra/logging"
	"pdfmailer/internal/mail"
)

func main() {
	cfg, err := config.Parse(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logging.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	// Function platforms collect stdout; a log file would be lost with the sandbox.
	logging.InitLogger("", 0, 0, 0, false, cfg.Logger.Level)

	sender, err := mail.New(context.Background(), cfg.Mail)
	if err != nil {
		logging.Error("Mail sender misconfigured", "error", err)
		os.Exit(1)
	}
	if err := mail.MissingCredentials(cfg.Mail); err != nil {
		logging.Warn("Mail credentials incomplete, sends will fail", "error", err)
	}

	svc := handlers.NewSendService(cfg, chrome.NewRenderer(cfg.Render), sender)
	lambda.Start(svc.HandleProxyEvent)
}
