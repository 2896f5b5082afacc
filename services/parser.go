package services

import (
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"f95-engagement/models"
	"f95-engagement/utils"
)

// Selectors and attributes of the listing card markup on the host page.
const (
	CardSelector   = ".resource-tile"
	ThreadIDAttr   = "data-thread-id"
	TagsAttr       = "data-tags"
	TitleSelector  = ".resource-tile_info-header_title"
	ViewsSelector  = ".resource-tile_info-meta_views"
	LikesSelector  = ".resource-tile_info-meta_likes"
	RatingSelector = ".resource-tile_info-meta_rating"

	missingTitle = "N/A"
)

// CardParser turns listing card markup into scored records.
type CardParser struct {
	scorer *Scorer
	logger *utils.Logger
}

// NewCardParser creates a CardParser scoring with the given Scorer.
func NewCardParser(scorer *Scorer, logger *utils.Logger) *CardParser {
	return &CardParser{scorer: scorer, logger: logger}
}

// Parse extracts one card. Missing elements degrade to defaults; it never fails.
func (p *CardParser) Parse(card *goquery.Selection) *models.ScoredListing {
	rec := models.ListingRecord{
		Title: missingTitle,
		Tags:  []int{},
	}

	rec.ThreadID, _ = card.Attr(ThreadIDAttr)
	rec.ThreadID = strings.TrimSpace(rec.ThreadID)

	if title := card.Find(TitleSelector).First(); title.Length() > 0 {
		rec.Title = normaliseText(title.Text())
	}

	if raw, ok := card.Attr(TagsAttr); ok {
		rec.Tags = parseTags(raw)
	}

	if el := card.Find(ViewsSelector).First(); el.Length() > 0 {
		rec.Views = ParseShorthand(el.Text())
	}
	if el := card.Find(LikesSelector).First(); el.Length() > 0 {
		rec.Likes = ParseShorthand(el.Text())
	}
	if el := card.Find(RatingSelector).First(); el.Length() > 0 {
		if r, err := strconv.ParseFloat(numberPrefixRegexp.FindString(strings.TrimSpace(el.Text())), 64); err == nil {
			rec.Rating = &r
		} else {
			p.logger.Debug("[parser] Unparseable rating %q on thread %s", el.Text(), rec.ThreadID)
		}
	}

	return &models.ScoredListing{
		Record: rec,
		Score:  p.scorer.Score(rec.Views, rec.Likes, rec.Rating),
	}
}

// ParseHTML parses a single card from its outer HTML.
func (p *CardParser) ParseHTML(html string) *models.ScoredListing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Debug("[parser] Card markup unreadable: %v", err)
		return p.Parse(&goquery.Selection{})
	}
	return p.Parse(doc.Find("body > *").First())
}

// ParseDocument parses every card under the container with the given id.
// It returns nil when the container is absent.
func (p *CardParser) ParseDocument(r io.Reader, containerID, cardSelector string) ([]*models.ScoredListing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	container := doc.Find("#" + containerID)
	if container.Length() == 0 {
		p.logger.Debug("[parser] Container #%s not found", containerID)
		return nil, nil
	}

	var out []*models.ScoredListing
	container.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		out = append(out, p.Parse(card))
	})
	return out, nil
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func parseTags(raw string) []int {
	tags := []int{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		tags = append(tags, n)
	}
	return tags
}
