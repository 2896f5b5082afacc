package services

import (
	"math"

	"f95-engagement/models"
)

// Weights scale each metric's contribution to the base score.
// The defaults are hand-picked heuristics, not measured truths.
type Weights struct {
	Views  float64
	Likes  float64
	Rating float64
}

// DefaultWeights are the weights the scorer uses unless configured otherwise.
var DefaultWeights = Weights{Views: 1.8, Likes: 1.2, Rating: 3.4}

const (
	fanFavoriteRatio    = 0.05
	fanFavoriteBonus    = 3.0
	highEngagementRatio = 0.10
	highEngagementBonus = 2.0
	clickbaitViews      = 20000
	clickbaitRating     = 3.0
	clickbaitPenalty    = 5.0
	masterpieceRating   = 4.5
	masterpieceLikes    = 50
	masterpieceBonus    = 2.0
	tierHighThreshold   = 27
	tierMediumThreshold = 25
	tierLowThreshold    = 15
	tierBadThreshold    = 9
)

// Scorer computes the community engagement score of a listing.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer. Zero weights fall back to DefaultWeights.
func NewScorer(w Weights) *Scorer {
	if w == (Weights{}) {
		w = DefaultWeights
	}
	return &Scorer{weights: w}
}

// Score combines views, likes and an optional rating into a ScoreResult.
func (s *Scorer) Score(views, likes float64, rating *float64) models.ScoreResult {
	views = sanitize(views)
	likes = sanitize(likes)
	r := 0.0
	if rating != nil {
		r = sanitize(*rating)
	}

	b := models.Breakdown{
		Views:  math.Log10(views+1) * s.weights.Views,
		Likes:  math.Log10(likes+1) * s.weights.Likes,
		Rating: r * s.weights.Rating,
	}
	base := b.Views + b.Likes + b.Rating

	mods := modifiers(views, likes, r)
	total := base + mods

	return models.ScoreResult{
		Total:     total,
		Modifiers: mods,
		Breakdown: b,
		Tier:      TierFor(total),
	}
}

// modifiers applies the bonus/penalty rules; each rule is evaluated independently.
func modifiers(views, likes, rating float64) float64 {
	var m float64

	likeRatio := 0.0
	if views > 0 {
		likeRatio = likes / views
	}
	if likeRatio > fanFavoriteRatio {
		m += fanFavoriteBonus
	}
	if likeRatio > highEngagementRatio {
		m += highEngagementBonus
	}

	if views > clickbaitViews && rating < clickbaitRating {
		m -= clickbaitPenalty
	}

	if rating >= masterpieceRating && likes > masterpieceLikes {
		m += masterpieceBonus
	}

	return m
}

// TierFor maps a total score onto its engagement tier.
func TierFor(total float64) models.Tier {
	switch {
	case total >= tierHighThreshold:
		return models.TierHigh
	case total >= tierMediumThreshold:
		return models.TierMedium
	case total >= tierLowThreshold:
		return models.TierLow
	case total >= tierBadThreshold:
		return models.TierBad
	default:
		return models.TierTooNew
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
