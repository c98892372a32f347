package domain

import (
	"context"
	"time"
)

// PaperSize is a paper format in inches.
type PaperSize struct {
	Width  float64
	Height float64
}

// RenderOptions control how the target page is loaded and printed.
type RenderOptions struct {
	ViewportWidth  int
	ViewportHeight int
	// WaitUntil is the page lifecycle event that marks the page as loaded,
	// e.g. "networkAlmostIdle".
	WaitUntil     string
	SettleDelay   time.Duration
	WaitForFonts  bool
	ReadySelector string

	PaperName       string
	Paper           PaperSize
	MarginMM        float64
	PrintBackground bool
}

// RenderRequest asks a Renderer to print URL to PDF.
type RenderRequest struct {
	URL     string
	Options RenderOptions
}

// Renderer turns a web page into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
}

// MarginInches converts the millimetre margin for the print API.
func (o RenderOptions) MarginInches() float64 {
	return o.MarginMM / 25.4
}
