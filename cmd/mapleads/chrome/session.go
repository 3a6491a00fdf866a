package chrome

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/mapleads/internal/logger"
	"github.com/jmylchreest/mapleads/pkg/browser"
)

// Session is a Chrome instance driven over the DevTools protocol. It
// implements browser.Session.
type Session struct {
	config Config

	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc

	main *Page

	mu     sync.Mutex
	closed bool
}

var _ browser.Session = (*Session)(nil)

// Launch starts Chrome and opens the main page.
func Launch(ctx context.Context, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	if cfg.ChromePath == "" {
		cfg.ChromePath = FindChromePath()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Logf("chromedp")),
		chromedp.WithErrorf(logger.Logf("chromedp error")),
	)

	s := &Session{
		config:        cfg,
		allocCtx:      allocCtx,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
	}

	// The first Run starts the browser and attaches the first tab. It must
	// use browserCtx itself: the browser lives as long as that context.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	if err := run(ctx, browserCtx, s.prepare()...); err != nil {
		_ = chromedp.Cancel(browserCtx)
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to prepare main page: %w", err)
	}
	s.main = newPage(s, browserCtx, nil)

	logger.Debug("browser started",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
		"locale", cfg.Locale,
		"chrome", cfg.ChromePath)
	return s, nil
}

// prepare returns the actions applied to every new tab.
func (s *Session) prepare() []chromedp.Action {
	actions := []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage(s.config.Locale)}),
		emulation.SetLocaleOverride().WithLocale(s.config.Locale),
	}
	if s.config.Stealth {
		script := StealthScript(s.config.Locale)
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}))
	}
	return actions
}

// MainPage implements browser.Session.
func (s *Session) MainPage() browser.Page {
	return s.main
}

// NewPage opens a new tab in the same browser.
func (s *Session) NewPage(ctx context.Context) (browser.Page, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, browser.ErrClosed
	}

	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	if err := run(ctx, tabCtx, s.prepare()...); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return newPage(s, tabCtx, cancel), nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := chromedp.Cancel(s.browserCtx)
	s.cancelBrowser()
	s.cancelAlloc()
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// run executes actions on the tab bound to tabCtx while honouring the
// cancellation and deadline of ctx. Cancelling the derived context aborts
// the actions without closing the tab.
func run(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}
