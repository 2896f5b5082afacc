package watcher

import (
	"context"
	"time"

	"f95-engagement/utils"
)

// NavigationSource emits the new URL whenever the page navigates.
type NavigationSource interface {
	Changes() <-chan string
}

// PollNavigation detects navigation by polling the page URL. It is the
// fallback for pages whose navigation does not surface as browser events.
type PollNavigation struct {
	reader   URLReader
	interval time.Duration
	logger   *utils.Logger
	changes  chan string
}

// NewPollNavigation creates a poller; call Start to begin polling.
func NewPollNavigation(reader URLReader, interval time.Duration, logger *utils.Logger) *PollNavigation {
	return &PollNavigation{
		reader:   reader,
		interval: interval,
		logger:   logger,
		changes:  make(chan string, 1),
	}
}

// Changes implements NavigationSource.
func (p *PollNavigation) Changes() <-chan string {
	return p.changes
}

// Start polls until ctx is done, then closes the Changes channel. The URL at
// start is the baseline and is not reported.
func (p *PollNavigation) Start(ctx context.Context) {
	go func() {
		defer close(p.changes)

		last, err := p.reader.CurrentURL(ctx)
		if err != nil {
			p.logger.Debug("[nav] Initial URL read failed: %v", err)
		}

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			u, err := p.reader.CurrentURL(ctx)
			if err != nil {
				p.logger.Debug("[nav] URL poll failed: %v", err)
				continue
			}
			if u == last {
				continue
			}
			last = u

			select {
			case p.changes <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
}
