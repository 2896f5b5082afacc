package services

import (
	"context"
	"fmt"

	"f95-engagement/models"
)

var tierColors = map[models.Tier]string{
	models.TierHigh:   "#00ff00ff",
	models.TierMedium: "#ffff00",
	models.TierLow:    "#ff9900ff",
	models.TierBad:    "#ff0400ff",
	models.TierTooNew: "#ff000042",
}

// CardRef addresses a card by its position in the container and, when known,
// its thread id.
type CardRef struct {
	Index    int
	ThreadID string
}

// StyleTarget is anything able to set a card's left border.
type StyleTarget interface {
	SetBorderLeft(ctx context.Context, ref CardRef, value string) error
}

// Styler paints a tier-coloured left border on listing cards.
type Styler struct {
	width   int
	enabled bool
}

// NewStyler creates a Styler. A disabled Styler never touches the page.
func NewStyler(width int, enabled bool) *Styler {
	return &Styler{width: width, enabled: enabled}
}

// Enabled reports whether borders are drawn at all.
func (s *Styler) Enabled() bool { return s.enabled }

// BorderFor returns the CSS border-left value for a tier.
func (s *Styler) BorderFor(tier models.Tier) string {
	color, ok := tierColors[tier]
	if !ok {
		color = tierColors[models.TierTooNew]
	}
	return fmt.Sprintf("%dpx solid %s", s.width, color)
}

// Apply sets the card's border for its score. The value is assigned rather
// than appended, so repeated calls leave the same style.
func (s *Styler) Apply(ctx context.Context, target StyleTarget, ref CardRef, score models.ScoreResult) error {
	if !s.enabled {
		return nil
	}
	if err := target.SetBorderLeft(ctx, ref, s.BorderFor(score.Tier)); err != nil {
		return fmt.Errorf("styler: card %d: %w", ref.Index, err)
	}
	return nil
}
