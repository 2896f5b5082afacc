package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"f95-engagement/models"
	"f95-engagement/utils"
)

const topListings = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(pageURL string, listings []*models.ScoredListing) *models.PassReport {
	report := &models.PassReport{
		PageURL:   pageURL,
		ScannedAt: time.Now(),
		Listings:  listings,
	}

	if len(listings) == 0 {
		return report
	}

	var total float64
	for _, l := range listings {
		report.TierCounts[l.Score.Tier]++
		total += l.Score.Total
	}
	report.AverageScore = round2(total / float64(len(listings)))

	ranked := make([]*models.ScoredListing, len(listings))
	copy(ranked, listings)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Total > ranked[j].Score.Total
	})
	if len(ranked) > topListings {
		ranked = ranked[:topListings]
	}
	report.Top = ranked

	return report
}

func (s *InsightService) Print(r *models.PassReport) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  COMMUNITY ENGAGEMENT PASS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("  Page     : %s\n", r.PageURL)
	fmt.Printf("  Listings : \033[1m%d\033[0m\n", len(r.Listings))
	fmt.Printf("  Average  : \033[1m%.2f\033[0m\n\n", r.AverageScore)

	fmt.Printf("\033[1;33m  Tiers\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for t := models.TierCount - 1; t >= 0; t-- {
		n := r.TierCounts[t]
		fmt.Printf("  %d %-8s %s (%d)\n", t, models.Tier(t), strings.Repeat("█", n), n)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Top %d Listings\033[0m\n", topListings)
	fmt.Printf("  %s\n", thin)
	if len(r.Top) == 0 {
		fmt.Printf("  No listings found\n")
	}
	for i, l := range r.Top {
		fmt.Printf("  \033[1m%d.\033[0m %-32s %8s views %6s likes %s  \033[1;32m%s\033[0m\n",
			i+1, truncate(l.Record.Title, 30),
			humanize.Comma(int64(l.Record.Views)), humanize.Comma(int64(l.Record.Likes)),
			ratingLabel(l.Record.Rating), l.Score.Display())
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func ratingLabel(r *float64) string {
	if r == nil {
		return "  - ★"
	}
	return fmt.Sprintf("%.1f ★", *r)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
