package chrome

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"

	"pdfmailer/internal/config"
	"pdfmailer/internal/domain"
)

func testConfig(t *testing.T) config.RenderConfig {
	cfg := config.Defaults().Render
	cfg.UserDataDir = t.TempDir()
	cfg.SettleDelay = 0
	return cfg
}

func testRequest(cfg config.RenderConfig) domain.RenderRequest {
	return domain.RenderRequest{
		URL: "https://example.com",
		Options: domain.RenderOptions{
			ViewportWidth:   cfg.ViewportWidth,
			ViewportHeight:  cfg.ViewportHeight,
			WaitUntil:       cfg.WaitUntil,
			Paper:           domain.PaperSize{Width: 8.27, Height: 11.69},
			MarginMM:        10,
			PrintBackground: true,
		},
	}
}

func TestCreateProfileDir_DefaultAndCustomBase(t *testing.T) {
	cfg := testConfig(t)
	cfg.UserDataDir = ""
	dir1, err := createProfileDir(cfg)
	if err != nil {
		t.Fatalf("createProfileDir default base failed: %v", err)
	}
	defer os.RemoveAll(dir1)
	if _, err := os.Stat(dir1); err != nil {
		t.Fatalf("expected created dir to exist: %v", err)
	}

	customBase := filepath.Join(t.TempDir(), "nested")
	cfg.UserDataDir = customBase
	dir2, err := createProfileDir(cfg)
	if err != nil {
		t.Fatalf("createProfileDir custom base failed: %v", err)
	}
	if filepath.Dir(dir2) != customBase {
		t.Fatalf("expected profile dir under %q, got %q", customBase, dir2)
	}
}

func TestCreateProfileDir_InvalidBase(t *testing.T) {
	cfg := testConfig(t)
	cfg.UserDataDir = "/dev/null/x"
	if _, err := createProfileDir(cfg); err == nil {
		t.Fatalf("expected error for invalid base dir")
	}
}

func TestSessionClose_RunsOnce(t *testing.T) {
	cfg := testConfig(t)
	s, err := newSession(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	if _, err := os.Stat(s.profileDir); err != nil {
		t.Fatalf("expected profile dir: %v", err)
	}

	s.Close()
	if _, err := os.Stat(s.profileDir); !os.IsNotExist(err) {
		t.Fatalf("expected profile dir removed, stat err=%v", err)
	}
	if s.ctx.Err() == nil {
		t.Fatalf("expected tab context canceled after close")
	}

	// A second Close must be a no-op: a directory recreated at the same path survives.
	if err := os.Mkdir(s.profileDir, 0o700); err != nil {
		t.Fatalf("recreate profile dir: %v", err)
	}
	s.Close()
	if _, err := os.Stat(s.profileDir); err != nil {
		t.Fatalf("expected second Close to leave the directory alone: %v", err)
	}
}

func TestRender_MissingBinaryFailsAndReleasesProfile(t *testing.T) {
	cfg := testConfig(t)
	cfg.ChromePath = "/definitely/missing/chrome"
	r := NewRenderer(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pdf, err := r.Render(ctx, testRequest(cfg))
	if err == nil {
		t.Fatalf("expected render error with missing chrome binary")
	}
	if pdf != nil {
		t.Fatalf("expected no PDF on failure")
	}

	entries, err := os.ReadDir(cfg.UserDataDir)
	if err != nil {
		t.Fatalf("read profile base: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected profile dirs to be cleaned up, found %d", len(entries))
	}
}

func TestRender_ProfileDirError(t *testing.T) {
	cfg := testConfig(t)
	cfg.UserDataDir = "/dev/null/not-allowed"
	_, err := NewRenderer(cfg).Render(context.Background(), testRequest(cfg))
	if err == nil {
		t.Fatalf("expected profile dir error")
	}
}

func TestAllocatorOptions_SandboxAndExecPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.ChromeNoSandbox = false
	base := len(allocatorOptions(cfg, "/tmp/p"))

	cfg.ChromeNoSandbox = true
	cfg.ChromePath = "/usr/bin/chromium"
	if got := len(allocatorOptions(cfg, "/tmp/p")); got != base+3 {
		t.Fatalf("expected exec path and two sandbox flags, got %d extra", got-base)
	}
}

func TestLifecycleWatcher_WaitsForMainLoader(t *testing.T) {
	w := newLifecycleWatcher("networkAlmostIdle")
	main := cdp.LoaderID("main")

	w.observe(&page.EventLifecycleEvent{LoaderID: "iframe", Name: "networkAlmostIdle"})
	w.observe(&page.EventLifecycleEvent{LoaderID: main, Name: "load"})
	w.observe("not a lifecycle event")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	if err := w.wait(ctx, main); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wait to time out before main loader is idle, got %v", err)
	}
	cancel()

	done := make(chan error, 1)
	go func() { done <- w.wait(context.Background(), main) }()
	w.observe(&page.EventLifecycleEvent{LoaderID: main, Name: "networkAlmostIdle"})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected wait error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("wait did not return after idle event")
	}
}

func TestLifecycleWatcher_EventSeenBeforeWait(t *testing.T) {
	w := newLifecycleWatcher("networkIdle")
	w.observe(&page.EventLifecycleEvent{LoaderID: "l1", Name: "networkIdle"})
	if err := w.wait(context.Background(), "l1"); err != nil {
		t.Fatalf("expected immediate return, got %v", err)
	}
}

func TestIsSessionInterrupted(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "context canceled", err: context.Canceled, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "target closed", err: errors.New("target closed"), want: true},
		{name: "navigation error", err: errors.New("page load error net::ERR_NAME_NOT_RESOLVED"), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSessionInterrupted(tc.err); got != tc.want {
				t.Fatalf("IsSessionInterrupted(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
