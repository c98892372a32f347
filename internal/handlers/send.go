package handlers

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"pdfmailer/internal/config"
	"pdfmailer/internal/domain"
	"pdfmailer/internal/infra/logging"
)

//go:embed email_body.html
var emailBody string

// Public messages of the JSON responses.
const (
	MsgMethodNotAllowed = "Method not allowed"
	MsgSpamDetected     = "Spam detected"
	MsgInvalidEmail     = "Valid email required"
	MsgInternalError    = "Internal server error"
	MsgSent             = "PDF sent successfully"
)

// Response is the JSON body of every reply.
type Response struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
	Cause   string `json:"cause,omitempty"`
}

// Result is the outcome of one invocation, independent of the transport.
type Result struct {
	Status int
	Body   Response
	Err    error
}

// SendService renders the configured page and mails it to the requester.
type SendService struct {
	cfg      config.Config
	renderer domain.Renderer
	sender   domain.Sender
}

// NewSendService creates a SendService.
func NewSendService(cfg config.Config, renderer domain.Renderer, sender domain.Sender) *SendService {
	return &SendService{
		cfg:      cfg,
		renderer: renderer,
		sender:   sender,
	}
}

// HandleSend is the fiber entrypoint. It is mounted for every method so that
// the 405 body comes from Process.
func (svc *SendService) HandleSend(c *fiber.Ctx) error {
	ctx := WithRequestID(c.UserContext(), c.GetRespHeader(fiber.HeaderXRequestID))
	res := svc.Process(ctx, c.Method(), c.Body())
	return c.Status(res.Status).JSON(res.Body)
}

// Process validates the request, renders the PDF, mails it and builds the
// response. Validation failures never reach the renderer or the sender.
func (svc *SendService) Process(ctx context.Context, method string, body []byte) Result {
	requestID := RequestIDFrom(ctx)

	if method != fiber.MethodPost {
		return reject(fiber.StatusMethodNotAllowed, MsgMethodNotAllowed, domain.ErrMethodNotAllowed)
	}

	req := domain.ParseSendRequest(body)
	if err := req.Validate(); err != nil {
		if errors.Is(err, domain.ErrSpamDetected) {
			logging.Info("Honeypot field filled, request dropped", "request_id", requestID)
			return reject(fiber.StatusBadRequest, MsgSpamDetected, err)
		}
		return reject(fiber.StatusBadRequest, MsgInvalidEmail, err)
	}

	start := time.Now()
	if err := svc.send(ctx, req); err != nil {
		cause := domain.CauseOf(err)
		logging.Error("Sending PDF failed",
			"cause", string(cause),
			"error", err,
			"request_id", requestID,
			"recipient_domain", recipientDomain(req.Email),
		)
		resp := Response{Error: MsgInternalError, Cause: string(cause)}
		if svc.cfg.Server.ExposeErrorDetails {
			resp.Details = err.Error()
		}
		return Result{Status: fiber.StatusInternalServerError, Body: resp, Err: err}
	}

	logging.Info("PDF sent",
		"request_id", requestID,
		"recipient_domain", recipientDomain(req.Email),
		"took_ms", time.Since(start).Milliseconds(),
	)
	return Result{Status: fiber.StatusOK, Body: Response{Success: true, Message: MsgSent}}
}

func reject(status int, msg string, err error) Result {
	return Result{Status: status, Body: Response{Error: msg}, Err: err}
}

func (svc *SendService) send(ctx context.Context, req domain.SendRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.Failure{Cause: domain.CauseInternal, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	renderCtx, cancel := withTimeout(ctx, svc.cfg.Render.Timeout)
	pdf, err := svc.renderer.Render(renderCtx, svc.renderRequest())
	cancel()
	if err != nil {
		return domain.RenderFailure(err)
	}
	if len(pdf) == 0 {
		return domain.RenderFailure(errors.New("renderer returned an empty PDF"))
	}

	mailCtx, cancel := withTimeout(ctx, svc.cfg.Mail.Timeout)
	defer cancel()
	if err := svc.sender.Send(mailCtx, svc.message(req.Email, pdf)); err != nil {
		return domain.MailFailure(err)
	}
	return nil
}

func (svc *SendService) renderRequest() domain.RenderRequest {
	r := svc.cfg.Render
	paper := r.PaperSize()
	return domain.RenderRequest{
		URL: r.URL,
		Options: domain.RenderOptions{
			ViewportWidth:   r.ViewportWidth,
			ViewportHeight:  r.ViewportHeight,
			WaitUntil:       r.WaitUntil,
			SettleDelay:     r.SettleDelay,
			WaitForFonts:    r.WaitForFonts,
			ReadySelector:   r.ReadySelector,
			PaperName:       r.Paper,
			Paper:           domain.PaperSize{Width: paper.Width, Height: paper.Height},
			MarginMM:        r.MarginMM,
			PrintBackground: r.PrintBackground,
		},
	}
}

func (svc *SendService) message(to string, pdf []byte) domain.Message {
	m := svc.cfg.Mail
	return domain.Message{
		FromName: m.FromName,
		From:     m.Username,
		To:       to,
		Subject:  m.Subject,
		HTMLBody: emailBody,
		Attachments: []domain.Attachment{{
			Filename:    m.AttachmentName,
			ContentType: domain.ContentTypePDF,
			Data:        pdf,
		}},
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func recipientDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return email[at+1:]
	}
	return ""
}
