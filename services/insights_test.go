package services

import (
	"testing"
	"unicode/utf8"

	"f95-engagement/models"
	"f95-engagement/utils"
)

func sampleListings() []*models.ScoredListing {
	mk := func(id string, total float64) *models.ScoredListing {
		return &models.ScoredListing{
			Record: models.ListingRecord{ThreadID: id, Title: "Game " + id},
			Score:  models.ScoreResult{Total: total, Tier: TierFor(total)},
		}
	}
	return []*models.ScoredListing{
		mk("1", 30),
		mk("2", 26),
		mk("3", 16),
		mk("4", 10),
		mk("5", 4),
		mk("6", 28),
	}
}

func TestInsightTierCounts(t *testing.T) {
	svc := NewInsightService(utils.NewTestLogger())
	r := svc.Generate("https://f95zone.to/sam/latest_alpha/", sampleListings())

	want := [models.TierCount]int{1, 1, 1, 1, 2}
	if r.TierCounts != want {
		t.Errorf("TierCounts: got %v, want %v", r.TierCounts, want)
	}
	if len(r.Listings) != 6 {
		t.Errorf("Listings: got %d, want 6", len(r.Listings))
	}
}

func TestInsightAverage(t *testing.T) {
	svc := NewInsightService(utils.NewTestLogger())
	r := svc.Generate("", sampleListings())
	if r.AverageScore != 19 {
		t.Errorf("AverageScore: got %.2f, want 19.00", r.AverageScore)
	}
}

func TestInsightTop(t *testing.T) {
	svc := NewInsightService(utils.NewTestLogger())
	listings := sampleListings()
	r := svc.Generate("", listings)

	if len(r.Top) != 5 {
		t.Fatalf("Top len: got %d, want 5", len(r.Top))
	}
	if r.Top[0].Record.ThreadID != "1" || r.Top[1].Record.ThreadID != "6" {
		t.Errorf("Top order: got %s, %s", r.Top[0].Record.ThreadID, r.Top[1].Record.ThreadID)
	}
	if listings[0].Record.ThreadID != "1" || listings[5].Record.ThreadID != "6" {
		t.Error("Generate must not reorder the input slice")
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.NewTestLogger())
	r := svc.Generate("", nil)
	if len(r.Listings) != 0 || r.AverageScore != 0 || r.Top != nil {
		t.Errorf("expected empty report, got %+v", r)
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Short", 10, "Short"},
		{"Exactly ten", 11, "Exactly ten"},
		{"A very long game title", 10, "A very ..."},
		{"Ночная смена: эпизод 2", 10, "Ночная ..."},
		{"異世界ハーレム物語", 8, "異世界ハー..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.max)
		}
	}
}
