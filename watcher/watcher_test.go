package watcher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"f95-engagement/config"
	"f95-engagement/models"
	"f95-engagement/services"
	"f95-engagement/utils"
)

const listingURL = "https://f95zone.to/sam/latest_alpha/#/cat=games/page=1"

type fakePage struct {
	mu              sync.Mutex
	url             string
	present         bool
	cards           []CardSnapshot
	borders         map[int]string
	styleCalls      int
	cardsCalls      int
	observeCalls    int
	disconnectCalls int
	mutations       chan struct{}
}

func newFakePage(url string, present bool, ids ...string) *fakePage {
	p := &fakePage{
		url:       url,
		present:   present,
		borders:   make(map[int]string),
		mutations: make(chan struct{}, 8),
	}
	p.setCards(ids...)
	return p
}

func card(id string, views, likes, rating string) CardSnapshot {
	return CardSnapshot{
		ThreadID: id,
		HTML: fmt.Sprintf(`<div class="resource-tile" data-thread-id="%s">
			<div class="resource-tile_info-header_title">Game %s</div>
			<span class="resource-tile_info-meta_views">%s</span>
			<span class="resource-tile_info-meta_likes">%s</span>
			<span class="resource-tile_info-meta_rating">%s</span>
		</div>`, id, id, views, likes, rating),
	}
}

func (p *fakePage) setCards(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cards = p.cards[:0]
	for _, id := range ids {
		p.cards = append(p.cards, card(id, "250K", "9000", "4.8"))
	}
}

func (p *fakePage) setPresent(v bool) {
	p.mu.Lock()
	p.present = v
	p.mu.Unlock()
}

func (p *fakePage) counts() (style, cards, observe, disconnect int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.styleCalls, p.cardsCalls, p.observeCalls, p.disconnectCalls
}

func (p *fakePage) CurrentURL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) ContainerPresent(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.present, nil
}

func (p *fakePage) Cards(context.Context) ([]CardSnapshot, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cardsCalls++
	if !p.present {
		return nil, false, nil
	}
	out := make([]CardSnapshot, len(p.cards))
	copy(out, p.cards)
	return out, true, nil
}

func (p *fakePage) Observe(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.present {
		return fmt.Errorf("container missing")
	}
	p.observeCalls++
	return nil
}

func (p *fakePage) Disconnect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnectCalls++
	return nil
}

func (p *fakePage) Mutations() <-chan struct{} {
	return p.mutations
}

func (p *fakePage) SetBorderLeft(_ context.Context, ref services.CardRef, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.styleCalls++
	p.borders[ref.Index] = value
	return nil
}

type chanNav chan string

func (c chanNav) Changes() <-chan string { return c }

type countingExporter struct {
	mu      sync.Mutex
	reports []*models.PassReport
}

func (e *countingExporter) Export(r *models.PassReport) {
	e.mu.Lock()
	e.reports = append(e.reports, r)
	e.mu.Unlock()
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.ContainerRetryDelay = 5 * time.Millisecond
	cfg.SettleDelay = 20 * time.Millisecond
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestInitialPassStylesExistingCards(t *testing.T) {
	page := newFakePage(listingURL, true, "1", "2")
	exp := &countingExporter{}
	w := New(testConfig(), page, nil, utils.NewTestLogger(), WithExporter(exp))

	w.HandleNavigation(context.Background(), listingURL)

	style, _, observe, _ := page.counts()
	if style != 2 {
		t.Errorf("style calls: got %d, want 2", style)
	}
	if observe != 1 {
		t.Errorf("observe calls: got %d, want 1", observe)
	}
	if w.Session().State != StateWatching {
		t.Errorf("state: got %s, want watching", w.Session().State)
	}
	if !w.Session().Processed.Equal(utils.NewIDSet("1", "2")) {
		t.Error("processed set should hold the visible ids")
	}
	if len(exp.reports) != 1 {
		t.Errorf("exported reports: got %d, want 1", len(exp.reports))
	}
	if page.borders[0] != "2px solid #00ff00ff" {
		t.Errorf("border: got %q", page.borders[0])
	}
}

func TestReprocessUnchangedSetIsNoop(t *testing.T) {
	page := newFakePage(listingURL, true, "1", "2", "3")
	w := New(testConfig(), page, nil, utils.NewTestLogger())
	w.HandleNavigation(context.Background(), listingURL)

	res, err := w.Reprocess(context.Background())
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if !res.Skipped {
		t.Error("second pass over the same ids should be skipped")
	}

	style, _, _, _ := page.counts()
	if style != 3 {
		t.Errorf("style calls: got %d, want 3 (one pass)", style)
	}
	if w.Session().Passes != 1 {
		t.Errorf("passes: got %d, want 1", w.Session().Passes)
	}
}

func TestReprocessChangedSetRestyles(t *testing.T) {
	page := newFakePage(listingURL, true, "1", "2")
	w := New(testConfig(), page, nil, utils.NewTestLogger())
	w.HandleNavigation(context.Background(), listingURL)

	page.setCards("3", "4", "5")
	res, err := w.Reprocess(context.Background())
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if res.Skipped || res.Styled != 3 {
		t.Errorf("result: got %+v, want 3 styled", res)
	}
	if !w.Session().Processed.Equal(utils.NewIDSet("3", "4", "5")) {
		t.Error("processed set should be replaced wholesale")
	}

	// a subset is a different set too
	page.setCards("3", "4")
	res, _ = w.Reprocess(context.Background())
	if res.Skipped {
		t.Error("subset of previous ids should be reprocessed")
	}
}

func TestReprocessCardsWithoutIDsAlwaysRun(t *testing.T) {
	page := newFakePage(listingURL, true)
	page.cards = []CardSnapshot{{HTML: `<div class="resource-tile"></div>`}}
	w := New(testConfig(), page, nil, utils.NewTestLogger())
	w.HandleNavigation(context.Background(), listingURL)

	res, _ := w.Reprocess(context.Background())
	if res.Skipped {
		t.Error("an empty id set must not short-circuit the pass")
	}
}

func TestReprocessEmptyContainer(t *testing.T) {
	page := newFakePage(listingURL, true)
	w := New(testConfig(), page, nil, utils.NewTestLogger())

	res, err := w.Reprocess(context.Background())
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if !res.Skipped {
		t.Error("no cards means nothing to do")
	}
}

func TestDisabledBorderStillParses(t *testing.T) {
	cfg := testConfig()
	cfg.DrawBorder = false
	page := newFakePage(listingURL, true, "1")
	exp := &countingExporter{}
	w := New(cfg, page, nil, utils.NewTestLogger(), WithExporter(exp))

	w.HandleNavigation(context.Background(), listingURL)

	style, _, _, _ := page.counts()
	if style != 0 {
		t.Errorf("style calls: got %d, want 0", style)
	}
	if len(exp.reports) != 1 || len(exp.reports[0].Listings) != 1 {
		t.Error("the pass should still run and report")
	}
}

func TestNavigationAwayResetsSession(t *testing.T) {
	page := newFakePage(listingURL, true, "1")
	w := New(testConfig(), page, nil, utils.NewTestLogger())
	w.HandleNavigation(context.Background(), listingURL)

	w.HandleNavigation(context.Background(), "https://f95zone.to/threads/some-game.1/")

	_, _, _, disconnect := page.counts()
	if disconnect != 1 {
		t.Errorf("disconnect calls: got %d, want 1", disconnect)
	}
	s := w.Session()
	if s.State != StateIdle {
		t.Errorf("state: got %s, want idle", s.State)
	}
	if s.Processed.Size() != 0 {
		t.Error("processed set should be cleared on navigation")
	}
	if w.retry.Pending() || w.settle.Pending() {
		t.Error("no timers should be armed off the listing page")
	}
}

func TestMissingContainerSchedulesRetry(t *testing.T) {
	page := newFakePage(listingURL, false, "1")
	w := New(testConfig(), page, nil, utils.NewTestLogger())

	w.HandleNavigation(context.Background(), listingURL)

	if !w.retry.Pending() {
		t.Error("retry should be armed while the container is missing")
	}
	if w.Session().State != StateIdle {
		t.Error("should stay idle until the container appears")
	}
}

func TestRunRetriesUntilContainerAppears(t *testing.T) {
	page := newFakePage(listingURL, false, "1", "2")
	w := New(testConfig(), page, nil, utils.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	page.setPresent(true)

	waitFor(t, "cards to be styled", func() bool {
		style, _, observe, _ := page.counts()
		return style == 2 && observe == 1
	})

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestRunDebouncesMutationBursts(t *testing.T) {
	page := newFakePage(listingURL, true, "1", "2")
	w := New(testConfig(), page, nil, utils.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	waitFor(t, "initial pass", func() bool {
		_, _, observe, _ := page.counts()
		return observe == 1
	})

	page.setCards("3", "4", "5")
	for i := 0; i < 3; i++ {
		page.mutations <- struct{}{}
	}

	waitFor(t, "new cards to be styled", func() bool {
		style, _, _, _ := page.counts()
		return style == 5
	})
	time.Sleep(60 * time.Millisecond)

	_, cardsCalls, _, _ := page.counts()
	if cardsCalls != 2 {
		t.Errorf("card reads: got %d, want 2 (initial pass + one settled pass)", cardsCalls)
	}
}

func TestRunHandlesNavigationEvents(t *testing.T) {
	page := newFakePage(listingURL, true, "1")
	nav := make(chanNav, 1)
	w := New(testConfig(), page, nav, utils.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	waitFor(t, "initial pass", func() bool {
		_, _, observe, _ := page.counts()
		return observe == 1
	})

	nav <- "https://f95zone.to/forums/"
	waitFor(t, "observer teardown", func() bool {
		_, _, _, disconnect := page.counts()
		return disconnect == 1
	})

	nav <- listingURL
	waitFor(t, "observer re-attached", func() bool {
		_, _, observe, _ := page.counts()
		return observe == 2
	})

	style, _, _, _ := page.counts()
	if style != 2 {
		t.Errorf("style calls: got %d, want 2 (cards restyled after returning)", style)
	}
}

func TestIsListingPage(t *testing.T) {
	w := New(testConfig(), newFakePage("", false), nil, utils.NewTestLogger())
	tests := []struct {
		url  string
		want bool
	}{
		{"https://f95zone.to/sam/latest_alpha/", true},
		{"https://f95zone.to/sam/latest_alpha/#/cat=games", true},
		{"https://f95zone.to/threads/some-game.3/", false},
		{"https://f95zone.to/?q=/latest_alpha", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := w.isListingPage(tt.url); got != tt.want {
			t.Errorf("isListingPage(%q) = %v; want %v", tt.url, got, tt.want)
		}
	}
}
