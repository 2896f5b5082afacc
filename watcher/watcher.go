package watcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"f95-engagement/config"
	"f95-engagement/models"
	"f95-engagement/services"
	"f95-engagement/utils"
)

// PassResult describes the outcome of one Reprocess call.
type PassResult struct {
	Skipped bool
	Styled  int
	Report  *models.PassReport
}

// Watcher drives the detect → parse → score → style loop for one browser tab.
// All of its state is owned by the goroutine running Run.
type Watcher struct {
	page       Page
	nav        NavigationSource
	pathMarker string

	parser   *services.CardParser
	styler   *services.Styler
	insights *services.InsightService
	exporter Exporter
	logger   *utils.Logger

	session *Session
	retry   *Debouncer
	settle  *Debouncer
}

// Option customises a Watcher.
type Option func(*Watcher)

// WithExporter hands every pass report to e.
func WithExporter(e Exporter) Option {
	return func(w *Watcher) { w.exporter = e }
}

// New creates a Watcher for page, reacting to navigation reported by nav.
func New(cfg *config.Config, page Page, nav NavigationSource, logger *utils.Logger, opts ...Option) *Watcher {
	scorer := services.NewScorer(services.Weights{
		Views:  cfg.ViewsWeight,
		Likes:  cfg.LikesWeight,
		Rating: cfg.RatingWeight,
	})

	w := &Watcher{
		page:       page,
		nav:        nav,
		pathMarker: cfg.PagePathMarker,
		parser:     services.NewCardParser(scorer, logger),
		styler:     services.NewStyler(cfg.BorderWidth, cfg.DrawBorder),
		insights:   services.NewInsightService(logger),
		logger:     logger,
		session:    newSession(""),
		retry:      NewDebouncer(cfg.ContainerRetryDelay),
		settle:     NewDebouncer(cfg.SettleDelay),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Session returns the current page-view session.
func (w *Watcher) Session() *Session {
	return w.session
}

// Run processes the current page and then every navigation, mutation and
// timer event until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	current, err := w.page.CurrentURL(ctx)
	if err != nil {
		w.logger.Warn("[watcher] Could not read current URL: %v", err)
	}
	w.HandleNavigation(ctx, current)

	var navCh <-chan string
	if w.nav != nil {
		navCh = w.nav.Changes()
	}

	for {
		select {
		case <-ctx.Done():
			w.retry.Stop()
			w.settle.Stop()
			return ctx.Err()

		case u, ok := <-navCh:
			if !ok {
				w.logger.Debug("[watcher] Navigation source closed")
				navCh = nil
				continue
			}
			w.HandleNavigation(ctx, u)

		case <-w.page.Mutations():
			w.handleMutation()

		case <-w.retry.C():
			w.retry.Stop()
			w.locateContainer(ctx)

		case <-w.settle.C():
			w.settle.Stop()
			if _, err := w.Reprocess(ctx); err != nil {
				w.logger.Warn("[watcher] Reprocess failed: %v", err)
			}
		}
	}
}

// HandleNavigation tears down the previous page view and starts a new one
// for pageURL.
func (w *Watcher) HandleNavigation(ctx context.Context, pageURL string) {
	w.logger.Debug("[watcher] Processing %s", pageURL)

	if w.session.State == StateWatching {
		if err := w.page.Disconnect(ctx); err != nil {
			w.logger.Debug("[watcher] Disconnect failed: %v", err)
		}
	}
	w.retry.Stop()
	w.settle.Stop()
	w.session = newSession(pageURL)

	if !w.isListingPage(pageURL) {
		w.logger.Debug("[watcher] Nothing special to do on current page")
		return
	}
	w.locateContainer(ctx)
}

func (w *Watcher) isListingPage(pageURL string) bool {
	if w.pathMarker == "" {
		return true
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, w.pathMarker)
}

// locateContainer processes existing cards and attaches the observer, or
// schedules another attempt when the container has not rendered yet.
func (w *Watcher) locateContainer(ctx context.Context) {
	present, err := w.page.ContainerPresent(ctx)
	if err != nil {
		w.logger.Debug("[watcher] Container lookup failed: %v", err)
	}
	if !present {
		w.logger.Debug("[watcher] Container not found, waiting...")
		w.retry.Trigger()
		return
	}

	if _, err := w.Reprocess(ctx); err != nil {
		w.logger.Warn("[watcher] Initial pass failed: %v", err)
	}

	w.logger.Debug("[watcher] Setting up observer for card changes...")
	if err := w.page.Observe(ctx); err != nil {
		w.logger.Debug("[watcher] Observer attach failed: %v", err)
		w.retry.Trigger()
		return
	}
	w.session.State = StateWatching
}

func (w *Watcher) handleMutation() {
	if w.session.State != StateWatching {
		return
	}
	w.logger.Debug("[watcher] Cards changed, reprocessing...")
	w.settle.Trigger()
}

// Reprocess parses, scores and styles every visible card, unless the set of
// visible thread ids is the same non-empty set handled last time.
func (w *Watcher) Reprocess(ctx context.Context) (PassResult, error) {
	cards, found, err := w.page.Cards(ctx)
	if err != nil {
		return PassResult{}, fmt.Errorf("watcher: read cards: %w", err)
	}
	if !found {
		w.logger.Debug("[watcher] Container not found")
		return PassResult{Skipped: true}, nil
	}

	w.logger.Debug("[watcher] Found %d game cards", len(cards))
	if len(cards) == 0 {
		return PassResult{Skipped: true}, nil
	}

	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		if c.ThreadID != "" {
			ids = append(ids, c.ThreadID)
		}
	}
	current := utils.NewIDSet(ids...)

	if current.Size() > 0 && w.session.Processed.Equal(current) {
		w.logger.Debug("[watcher] Same cards, skipping...")
		return PassResult{Skipped: true}, nil
	}
	w.session.Processed.Replace(current)

	scored := make([]*models.ScoredListing, 0, len(cards))
	styled := 0
	for i, c := range cards {
		listing := w.parser.ParseHTML(c.HTML)
		scored = append(scored, listing)

		ref := services.CardRef{Index: i, ThreadID: c.ThreadID}
		if err := w.styler.Apply(ctx, w.page, ref, listing.Score); err != nil {
			w.logger.Debug("[watcher] %v", err)
			continue
		}
		if w.styler.Enabled() {
			styled++
		}
	}

	report := w.insights.Generate(w.session.URL, scored)
	if w.logger.Verbose() {
		w.insights.Print(report)
	}
	if w.exporter != nil {
		w.exporter.Export(report)
	}
	w.session.Passes++

	return PassResult{Styled: styled, Report: report}, nil
}
