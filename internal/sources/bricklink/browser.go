package bricklink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

const defaultPageTimeout = 45 * time.Second

var (
	chromedpExecAllocator = chromedp.NewExecAllocator
	chromedpContext       = chromedp.NewContext
	chromedpRunner        = chromedp.Run
)

// BrowserOptions configures the headless browser transport.
type BrowserOptions struct {
	Headless    bool
	UserAgent   string
	PageTimeout time.Duration
}

// BrowserFetcher loads pages in Chrome so scripts on the page can run before
// the HTML is read. The browser starts on first use and is shared by every
// later fetch until Close.
type BrowserFetcher struct {
	opts BrowserOptions

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// NewBrowserFetcher creates a browser transport. Nothing is started yet.
func NewBrowserFetcher(opts BrowserOptions) *BrowserFetcher {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = defaultPageTimeout
	}
	return &BrowserFetcher{opts: opts}
}

func buildExecAllocatorOptions(opts BrowserOptions) []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	}
}

func (f *BrowserFetcher) browser() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browserCtx == nil {
		allocCtx, cancelAlloc := chromedpExecAllocator(context.Background(), buildExecAllocatorOptions(f.opts)...)
		browserCtx, cancelBrowser := chromedpContext(allocCtx)
		f.browserCtx, f.cancelAlloc, f.cancelBrowser = browserCtx, cancelAlloc, cancelBrowser
		slog.Debug("Started browser for detail pages", "headless", f.opts.Headless)
	}
	return f.browserCtx
}

// FetchHTML implements PageFetcher by opening pageURL in a new tab.
func (f *BrowserFetcher) FetchHTML(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedpContext(f.browser())
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.opts.PageTimeout)
	defer cancelTimeout()

	// Closing the tab is how a cancelled caller aborts the navigation.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	actions := []chromedp.Action{}
	if f.opts.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(f.opts.UserAgent))
	}
	actions = append(actions,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedpRunner(tabCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("browser fetch %s: %w", pageURL, err)
	}
	if html == "" {
		return nil, errors.New("browser returned an empty document")
	}

	return []byte(html), nil
}

// Close shuts the browser down. It is safe to call when nothing was started.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancelBrowser != nil {
		f.cancelBrowser()
	}
	if f.cancelAlloc != nil {
		f.cancelAlloc()
	}
	f.browserCtx, f.cancelAlloc, f.cancelBrowser = nil, nil, nil
	return nil
}
