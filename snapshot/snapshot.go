// Package snapshot captures the rendered dashboard with headless Chrome.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"car-sales-dashboard/utils"
)

// chartsSelector is the dashboard element that holds every panel.
const chartsSelector = "#charts"

// Capturer drives a headless browser against a running dashboard.
type Capturer struct {
	logger    *utils.Logger
	retry     *utils.RetryConfig
	chromeBin string
	width     int
	height    int
	timeout   time.Duration
	settle    time.Duration
}

// New creates a Capturer. An empty chromeBin searches PATH and the usual
// install locations.
func New(chromeBin string, width, height, retries int, logger *utils.Logger) *Capturer {
	return &Capturer{
		logger:    logger,
		chromeBin: findChromeBinary(chromeBin, exec.LookPath, fileExists),
		width:     width,
		height:    height,
		timeout:   60 * time.Second,
		settle:    2 * time.Second,
		retry: &utils.RetryConfig{
			MaxAttempts: retries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Capture loads pageURL and returns a full-page PNG.
func (c *Capturer) Capture(ctx context.Context, pageURL string) ([]byte, error) {
	if c.chromeBin == "" {
		c.logger.Warn("[snapshot] No Chrome binary found, relying on chromedp defaults")
	} else {
		c.logger.Info("[snapshot] Using browser binary: %s", c.chromeBin)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(c.chromeBin, c.width, c.height)...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	var shot []byte
	err := c.retry.Do(ctx, "dashboard snapshot", func(ctx context.Context) error {
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.timeout)
		defer cancelTimeout()

		return chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitVisible(chartsSelector, chromedp.ByQuery),
			// chart images load after the page itself
			chromedp.Sleep(c.settle),
			chromedp.FullScreenshot(&shot, 100),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: capture %s: %w", pageURL, err)
	}

	c.logger.Info("[snapshot] Captured %s (%d bytes)", pageURL, len(shot))
	return shot, nil
}

// CaptureToFile captures pageURL and writes the PNG to path.
func (c *Capturer) CaptureToFile(ctx context.Context, pageURL, path string) error {
	shot, err := c.Capture(ctx, pageURL)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("snapshot: create output dir: %w", err)
	}
	if err := os.WriteFile(path, shot, 0644); err != nil {
		return fmt.Errorf("snapshot: write %q: %w", path, err)
	}
	return nil
}

func allocatorOptions(chromeBin string, width, height int) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(width, height),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}
	return opts
}

var (
	chromeNames = []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	chromePaths = []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
)

// findChromeBinary prefers the configured binary, then PATH, then the
// well-known install paths. It returns "" when nothing is found.
func findChromeBinary(configured string, lookPath func(string) (string, error), exists func(string) bool) string {
	if configured != "" {
		return configured
	}
	for _, name := range chromeNames {
		if path, err := lookPath(name); err == nil {
			return path
		}
	}
	for _, p := range chromePaths {
		if exists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
