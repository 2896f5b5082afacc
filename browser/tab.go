package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"f95-engagement/config"
	"f95-engagement/services"
	"f95-engagement/utils"
	"f95-engagement/watcher"
)

const (
	opTimeout       = 10 * time.Second
	navigateTimeout = 60 * time.Second
)

var errCardGone = errors.New("card no longer at expected position")

// Tab is a Chrome tab showing the listing page. It implements watcher.Page
// and, through Changes, the event-based watcher.NavigationSource.
type Tab struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig

	ctx    context.Context
	cancel context.CancelFunc

	mutations   chan struct{}
	navigations chan string
	navEvents   bool

	mu        sync.Mutex
	mainFrame cdp.FrameID
	lastURL   string
}

// Launch starts Chrome, registers the mutation binding and subscribes to
// navigation events. Close must be called to shut the browser down.
func Launch(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*Tab, error) {
	logf := func(string, ...interface{}) {}
	errorf := logf
	if cfg.Debug {
		logf = logger.Debug
		errorf = logger.Error
	}

	tabCtx, cancel := newAllocator(ctx, cfg, logf, errorf)

	t := &Tab{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		ctx:         tabCtx,
		cancel:      cancel,
		mutations:   make(chan struct{}, 1),
		navigations: make(chan string, 16),
		navEvents:   cfg.NavSource != config.NavSourcePoll,
	}

	chromedp.ListenTarget(tabCtx, t.onEvent)

	// The first Run allocates the browser, so it must not carry a short timeout.
	if err := chromedp.Run(tabCtx, runtime.AddBinding(mutationBinding)); err != nil {
		cancel()
		return nil, fmt.Errorf("browser: start: %w", err)
	}

	logger.Info("[browser] Chrome started (headless=%v)", cfg.Headless)
	return t, nil
}

// Open navigates the tab to pageURL, retrying on failure.
func (t *Tab) Open(ctx context.Context, pageURL string) error {
	return t.retry.Do(ctx, "open "+pageURL, func() error {
		return t.run(ctx, navigateTimeout, chromedp.Navigate(pageURL))
	})
}

// Close shuts the browser down.
func (t *Tab) Close() {
	t.cancel()
}

// Done is closed when the tab or browser goes away.
func (t *Tab) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Changes implements watcher.NavigationSource. Nothing is delivered when the
// configured source is polling.
func (t *Tab) Changes() <-chan string {
	return t.navigations
}

// Mutations implements watcher.Page.
func (t *Tab) Mutations() <-chan struct{} {
	return t.mutations
}

// CurrentURL implements watcher.URLReader.
func (t *Tab) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := t.run(ctx, opTimeout, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("browser: location: %w", err)
	}
	return u, nil
}

// ContainerPresent implements watcher.Page.
func (t *Tab) ContainerPresent(ctx context.Context) (bool, error) {
	var present bool
	err := t.run(ctx, opTimeout,
		chromedp.Evaluate(call(containerPresentJS, t.cfg.ContainerID), &present))
	if err != nil {
		return false, fmt.Errorf("browser: container lookup: %w", err)
	}
	return present, nil
}

// Cards implements watcher.Page.
func (t *Tab) Cards(ctx context.Context) ([]watcher.CardSnapshot, bool, error) {
	var res struct {
		Found bool                   `json:"found"`
		Cards []watcher.CardSnapshot `json:"cards"`
	}
	err := t.run(ctx, opTimeout,
		chromedp.Evaluate(call(cardsJS, t.cfg.ContainerID, t.cfg.CardSelector), &res))
	if err != nil {
		return nil, false, fmt.Errorf("browser: read cards: %w", err)
	}
	return res.Cards, res.Found, nil
}

// Observe implements watcher.Page.
func (t *Tab) Observe(ctx context.Context) error {
	var ok bool
	err := t.run(ctx, opTimeout,
		chromedp.Evaluate(call(observeJS, t.cfg.ContainerID, mutationBinding), &ok))
	if err != nil {
		return fmt.Errorf("browser: observe: %w", err)
	}
	if !ok {
		return fmt.Errorf("browser: observe: container #%s missing", t.cfg.ContainerID)
	}
	return nil
}

// Disconnect implements watcher.Page.
func (t *Tab) Disconnect(ctx context.Context) error {
	var ok bool
	if err := t.run(ctx, opTimeout, chromedp.Evaluate(call(disconnectJS), &ok)); err != nil {
		return fmt.Errorf("browser: disconnect: %w", err)
	}
	return nil
}

// SetBorderLeft implements services.StyleTarget.
func (t *Tab) SetBorderLeft(ctx context.Context, ref services.CardRef, value string) error {
	var ok bool
	err := t.run(ctx, opTimeout, chromedp.Evaluate(
		call(setBorderJS, t.cfg.ContainerID, t.cfg.CardSelector, ref.Index, ref.ThreadID, value), &ok))
	if err != nil {
		return fmt.Errorf("browser: set border: %w", err)
	}
	if !ok {
		return errCardGone
	}
	return nil
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (t *Tab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// onEvent runs on chromedp's event goroutine and must never block or call
// back into the tab.
func (t *Tab) onEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventBindingCalled:
		if ev.Name != mutationBinding {
			return
		}
		select {
		case t.mutations <- struct{}{}:
		default:
		}

	case *page.EventFrameNavigated:
		if ev.Frame == nil || ev.Frame.ParentID != "" {
			return
		}
		t.mu.Lock()
		t.mainFrame = ev.Frame.ID
		t.mu.Unlock()
		t.emitNavigation(ev.Frame.URL, true)

	case *page.EventNavigatedWithinDocument:
		t.mu.Lock()
		main := t.mainFrame
		t.mu.Unlock()
		if main != "" && ev.FrameID != main {
			return
		}
		t.emitNavigation(ev.URL, false)
	}
}

// emitNavigation reports a URL change. Document loads are always reported
// because they discard the page's observer; same-document changes only when
// the URL differs.
func (t *Tab) emitNavigation(u string, documentLoad bool) {
	if !t.navEvents {
		return
	}

	t.mu.Lock()
	if !documentLoad && u == t.lastURL {
		t.mu.Unlock()
		return
	}
	t.lastURL = u
	t.mu.Unlock()

	select {
	case t.navigations <- u:
	default:
		t.logger.Debug("[browser] Navigation queue full, dropped %s", u)
	}
}
