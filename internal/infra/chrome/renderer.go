package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"pdfmailer/internal/config"
	"pdfmailer/internal/domain"
	"pdfmailer/internal/infra/logging"
)

// Renderer prints web pages to PDF, starting a dedicated headless Chrome for
// every call.
type Renderer struct {
	cfg config.RenderConfig
}

// NewRenderer creates a Renderer. Chrome is only started by Render.
func NewRenderer(cfg config.RenderConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

// Render loads req.URL and returns the printed PDF. The browser is torn down
// before Render returns, whatever the outcome.
func (r *Renderer) Render(ctx context.Context, req domain.RenderRequest) ([]byte, error) {
	s, err := newSession(ctx, r.cfg)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	start := time.Now()
	pdf, err := renderPage(s.ctx, req)
	if err != nil {
		if IsSessionInterrupted(err) {
			logging.Warn("Chrome session interrupted", "url", req.URL, "error", err)
		}
		return nil, err
	}
	logging.Debug("Page rendered", "url", req.URL, "bytes", len(pdf), "took_ms", time.Since(start).Milliseconds())
	return pdf, nil
}

// session owns one Chrome process, its tab and its profile directory.
type session struct {
	ctx        context.Context
	profileDir string

	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	closeOnce sync.Once
}

func newSession(parent context.Context, cfg config.RenderConfig) (*session, error) {
	profileDir, err := createProfileDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot create temp profile dir: %w", err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocatorOptions(cfg, profileDir)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	return &session{
		ctx:         tabCtx,
		profileDir:  profileDir,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Close stops the browser and removes the profile directory. Only the first
// call has an effect.
func (s *session) Close() {
	s.closeOnce.Do(func() {
		if s.cancelTab != nil {
			s.cancelTab()
		}
		if s.cancelAlloc != nil {
			s.cancelAlloc()
		}
		if s.profileDir != "" {
			if err := os.RemoveAll(s.profileDir); err != nil {
				logging.Warn("Failed to remove chrome profile dir", "dir", s.profileDir, "error", err)
			}
		}
	})
}

func createProfileDir(cfg config.RenderConfig) (string, error) {
	base := cfg.UserDataDir
	if base == "" {
		base = os.TempDir()
	} else if err := os.MkdirAll(base, 0o700); err != nil {
		return "", err
	}
	return os.MkdirTemp(base, "chromedata-*")
}

func allocatorOptions(cfg config.RenderConfig, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		// Software rendering only; minimal containers and Lambda have no GPU.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.ChromeNoSandbox {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	return opts
}

func renderPage(ctx context.Context, req domain.RenderRequest) ([]byte, error) {
	opts := req.Options

	// Start the browser before attaching listeners to its target.
	if err := chromedp.Run(ctx); err != nil {
		return nil, err
	}

	watcher := newLifecycleWatcher(opts.WaitUntil)
	chromedp.ListenTarget(ctx, watcher.observe)

	actions := []chromedp.Action{
		chromedp.EmulateViewport(int64(opts.ViewportWidth), int64(opts.ViewportHeight)),
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(req.URL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return watcher.wait(ctx, tree.Frame.LoaderID)
		}),
	}
	if opts.ReadySelector != "" {
		actions = append(actions, chromedp.WaitVisible(opts.ReadySelector, chromedp.ByQuery))
	}
	if opts.WaitForFonts {
		var ready bool
		actions = append(actions, chromedp.Evaluate(`document.fonts.ready.then(() => true)`, &ready,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}))
	}
	if opts.SettleDelay > 0 {
		actions = append(actions, chromedp.Sleep(opts.SettleDelay))
	}

	var pdf []byte
	margin := opts.MarginInches()
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdf, _, err = page.PrintToPDF().
			WithPrintBackground(opts.PrintBackground).
			WithPaperWidth(opts.Paper.Width).
			WithPaperHeight(opts.Paper.Height).
			WithMarginTop(margin).
			WithMarginBottom(margin).
			WithMarginLeft(margin).
			WithMarginRight(margin).
			Do(ctx)
		return err
	}))

	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, err
	}
	if len(pdf) == 0 {
		return nil, errors.New("chrome returned an empty PDF")
	}
	return pdf, nil
}

// lifecycleWatcher records which document loaders reached a page lifecycle
// event such as networkAlmostIdle (at most two requests in flight for 500ms).
type lifecycleWatcher struct {
	event  string
	mu     sync.Mutex
	seen   map[cdp.LoaderID]bool
	notify chan struct{}
}

func newLifecycleWatcher(event string) *lifecycleWatcher {
	return &lifecycleWatcher{
		event:  event,
		seen:   make(map[cdp.LoaderID]bool),
		notify: make(chan struct{}, 1),
	}
}

func (w *lifecycleWatcher) observe(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || !strings.EqualFold(e.Name, w.event) {
		return
	}
	w.mu.Lock()
	w.seen[e.LoaderID] = true
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// wait blocks until loaderID reached the event or ctx is done.
func (w *lifecycleWatcher) wait(ctx context.Context, loaderID cdp.LoaderID) error {
	for {
		w.mu.Lock()
		done := w.seen[loaderID]
		w.mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", w.event, ctx.Err())
		case <-w.notify:
		}
	}
}

// IsSessionInterrupted reports errors caused by Chrome going away or the
// render deadline expiring rather than by the page itself.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "websocket") ||
		strings.Contains(msg, "invalid context")
}
