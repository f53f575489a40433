// Package browser drives a real Chrome instance over the DevTools protocol.
// The browser is launched with a fixed remote-debugging port and a throwaway
// profile, then attached to via a remote allocator, so a crashed run never
// leaves a locked user profile behind.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"deskpilot/internal/config"
)

const (
	connectAttempts = 10
	connectPause    = 500 * time.Millisecond
)

// Session is a single attached browser. Methods are safe for the one worker
// goroutine that owns the dispatch loop; Close may be called from shutdown.
type Session struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
	tabCtx      context.Context
	profileDir  string
}

func NewSession(cfg config.BrowserConfig, logger *zap.Logger) *Session {
	if cfg.DebugPort == 0 {
		cfg.DebugPort = 9222
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if cfg.ActionTimeout == 0 {
		cfg.ActionTimeout = 3 * time.Second
	}
	return &Session{cfg: cfg, logger: logger.Named("browser")}
}

// Connected reports whether a tab context is live.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabCtx != nil && s.tabCtx.Err() == nil
}

// Start tears down any previous session, kills stray Chrome processes,
// launches a fresh instance on the debugging port and attaches to it. url,
// when non-empty, is opened as the initial page.
func (s *Session) Start(ctx context.Context, url string) error {
	s.Close()
	killStrayChrome()

	chromePath := s.cfg.ChromePath
	if chromePath == "" {
		var err error
		chromePath, err = findChrome()
		if err != nil {
			return err
		}
	}

	profileDir, err := os.MkdirTemp("", "deskpilot-chrome-*")
	if err != nil {
		return fmt.Errorf("creating browser profile dir: %w", err)
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", s.cfg.DebugPort),
		"--user-data-dir=" + profileDir,
		"--no-first-run",
		"--no-default-browser-check",
		"--start-maximized",
	}
	if url != "" {
		args = append(args, url)
	}

	cmd := exec.Command(chromePath, args...)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(profileDir)
		return fmt.Errorf("launching chrome: %w", err)
	}
	// The process outlives us on purpose; reap it in the background so it
	// never turns into a zombie.
	go func() { _ = cmd.Wait() }()

	if err := s.attach(ctx); err != nil {
		os.RemoveAll(profileDir)
		return err
	}

	s.mu.Lock()
	s.profileDir = profileDir
	s.mu.Unlock()

	s.logger.Info("browser session started",
		zap.Int("debug_port", s.cfg.DebugPort),
		zap.String("url", url),
	)
	return nil
}

// attach polls the debugging endpoint until Chrome answers, then builds the
// remote allocator and tab context.
func (s *Session) attach(ctx context.Context) error {
	endpoint := fmt.Sprintf("http://127.0.0.1:%d", s.cfg.DebugPort)
	versionURL := endpoint + "/json/version"

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := http.Get(versionURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), endpoint)
				tabCtx, tabCancel := chromedp.NewContext(allocCtx)
				err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(c context.Context) error {
					return page.BringToFront().Do(c)
				}))
				if err != nil {
					tabCancel()
					allocCancel()
					lastErr = err
				} else {
					s.mu.Lock()
					s.allocCancel = allocCancel
					s.tabCancel = tabCancel
					s.tabCtx = tabCtx
					s.mu.Unlock()
					return nil
				}
			} else {
				lastErr = fmt.Errorf("debugging endpoint returned %s", resp.Status)
			}
		} else {
			lastErr = err
		}
		time.Sleep(connectPause)
	}
	return fmt.Errorf("chrome did not answer on port %d after %d attempts: %w",
		s.cfg.DebugPort, connectAttempts, lastErr)
}

// Close detaches from the browser and removes the throwaway profile. The
// Chrome process itself is left running; the next Start kills it.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tabCancel != nil {
		s.tabCancel()
		s.tabCancel = nil
		s.tabCtx = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	if s.profileDir != "" {
		os.RemoveAll(s.profileDir)
		s.profileDir = ""
	}
}

// tab returns the live tab context bounded by the given timeout.
func (s *Session) tab(timeout time.Duration) (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	tabCtx := s.tabCtx
	s.mu.Unlock()
	if tabCtx == nil || tabCtx.Err() != nil {
		return nil, nil, fmt.Errorf("no browser session; use browser_start first")
	}
	tctx, cancel := context.WithTimeout(tabCtx, timeout)
	return tctx, cancel, nil
}

// evaluate runs a snippet in the current document and unmarshals the result.
func (s *Session) evaluate(ctx context.Context, js string, res any) error {
	return chromedp.Run(ctx, chromedp.Evaluate(js, res))
}

// findChrome probes the usual install locations per platform.
func findChrome() (string, error) {
	var candidates []string
	switch runtime.GOOS {
	case "windows":
		for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)", "LocalAppData"} {
			if base := os.Getenv(env); base != "" {
				candidates = append(candidates,
					filepath.Join(base, "Google", "Chrome", "Application", "chrome.exe"))
			}
		}
		candidates = append(candidates,
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		)
	case "darwin":
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	default:
		for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
			if p, err := exec.LookPath(name); err == nil {
				return p, nil
			}
		}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("chrome binary not found; set browser.chrome_path")
}

// killStrayChrome terminates any Chrome that would hold the debugging port.
// Failure is ignored; attach reports the real problem if the port stays busy.
func killStrayChrome() {
	switch runtime.GOOS {
	case "windows":
		_ = exec.Command("taskkill", "/F", "/IM", "chrome.exe", "/T").Run()
	case "darwin":
		_ = exec.Command("pkill", "-f", "Google Chrome").Run()
	default:
		_ = exec.Command("pkill", "-f", "chrome").Run()
	}
	time.Sleep(time.Second)
}
