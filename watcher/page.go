// Package watcher keeps the engagement borders of a listing page in sync
// with the cards the page currently shows.
package watcher

import (
	"context"

	"f95-engagement/models"
	"f95-engagement/services"
)

// CardSnapshot is one listing card as read from the live page.
type CardSnapshot struct {
	ThreadID string `json:"id"`
	HTML     string `json:"html"`
}

// URLReader reports the address the page is currently showing.
type URLReader interface {
	CurrentURL(ctx context.Context) (string, error)
}

// Page is the host page as the watcher sees it. Implementations are bound
// to one container id and card selector.
type Page interface {
	URLReader
	services.StyleTarget

	// ContainerPresent reports whether the listing container exists.
	ContainerPresent(ctx context.Context) (bool, error)
	// Cards returns the container's cards in document order. found is false
	// when the container is missing.
	Cards(ctx context.Context) (cards []CardSnapshot, found bool, err error)
	// Observe attaches a direct-children child-list observer to the container,
	// replacing any previous one.
	Observe(ctx context.Context) error
	// Disconnect detaches the observer, if any.
	Disconnect(ctx context.Context) error
	// Mutations signals each batch of child additions or removals.
	Mutations() <-chan struct{}
}

// Exporter receives the report of every completed pass.
type Exporter interface {
	Export(report *models.PassReport)
}
