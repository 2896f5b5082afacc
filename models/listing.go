package models

import (
	"fmt"
	"time"
)

// Tier buckets a listing's engagement score, 0 (lowest) to 4 (highest).
type Tier int

const (
	TierTooNew Tier = iota
	TierBad
	TierLow
	TierMedium
	TierHigh
)

// TierCount is the number of distinct tiers.
const TierCount = 5

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	case TierBad:
		return "bad"
	default:
		return "too-new"
	}
}

// ListingRecord holds the metrics extracted from one listing card.
// It is rebuilt on every parse pass and never kept past styling.
type ListingRecord struct {
	ThreadID string
	Title    string
	Tags     []int
	Views    float64
	Likes    float64
	Rating   *float64 // nil when the card shows no rating
}

// Breakdown is the weighted contribution of each metric to the score.
type Breakdown struct {
	Views  float64
	Likes  float64
	Rating float64
}

// ScoreResult is derived purely from a ListingRecord's metrics.
type ScoreResult struct {
	Total     float64
	Modifiers float64
	Breakdown Breakdown
	Tier      Tier
}

// Display returns the total rounded to two decimals.
func (s ScoreResult) Display() string {
	return fmt.Sprintf("%.2f", s.Total)
}

// ScoredListing pairs a parsed record with its score.
type ScoredListing struct {
	Record ListingRecord
	Score  ScoreResult
}

// PassReport summarises one reprocessing pass over the visible listings.
type PassReport struct {
	PageURL      string
	ScannedAt    time.Time
	Listings     []*ScoredListing
	TierCounts   [TierCount]int
	AverageScore float64
	Top          []*ScoredListing
}
