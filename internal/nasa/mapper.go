package nasa

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/blackmichael/space-feeds/internal/domain"
)

const (
	noDescription = "No description available."
	unknownDate   = "Unknown Date"
	excerptRunes  = 280
)

// MapLibraryItems normalizes a search page, skipping items without metadata.
func MapLibraryItems(items []libraryItem) []domain.Post {
	posts := make([]domain.Post, 0, len(items))
	for _, item := range items {
		if post, ok := MapLibraryItem(item); ok {
			posts = append(posts, post)
		}
	}
	return posts
}

// MapLibraryItem normalizes one library item from its first data entry and
// first link. Returns false when the item has no data entry or no nasa_id.
func MapLibraryItem(item libraryItem) (domain.Post, bool) {
	if len(item.Data) == 0 {
		return domain.Post{}, false
	}
	data := item.Data[0]
	if strings.TrimSpace(data.NasaID) == "" {
		return domain.Post{}, false
	}

	imageURL := domain.PlaceholderImage
	if len(item.Links) > 0 && item.Links[0].Href != "" {
		imageURL = item.Links[0].Href
	}

	description := data.Description
	if strings.TrimSpace(description) == "" {
		description = noDescription
	}

	return domain.Post{
		ID:          strings.TrimSpace(data.NasaID),
		Title:       strings.TrimSpace(data.Title),
		Description: description,
		Excerpt:     plainExcerpt(description),
		ImageURL:    imageURL,
		Date:        isoDate(data.DateCreated),
		MediaType:   domain.MediaType(data.MediaType),
		Source:      domain.SourceLibrary,
	}, true
}

// MapPictureOfDay normalizes an APOD entry. For videos ImageURL is the video
// link.
func MapPictureOfDay(resp apodResponse) *domain.Post {
	description := resp.Explanation
	if strings.TrimSpace(description) == "" {
		description = noDescription
	}
	return &domain.Post{
		ID:          "apod-" + resp.Date,
		Title:       strings.TrimSpace(resp.Title),
		Description: description,
		Excerpt:     plainExcerpt(description),
		ImageURL:    resp.URL,
		Date:        resp.Date,
		MediaType:   domain.MediaType(resp.MediaType),
		Source:      domain.SourcePictureOfDay,
	}
}

// MapNearEarthObjects converts the feed entries for one date. Objects with
// no close-approach record are skipped.
func MapNearEarthObjects(objects []neoObject) []domain.NearEarthObject {
	out := make([]domain.NearEarthObject, 0, len(objects))
	for _, o := range objects {
		if len(o.CloseApproachData) == 0 {
			continue
		}
		approach := o.CloseApproachData[0]
		out = append(out, domain.NearEarthObject{
			ID:                o.ID,
			Name:              o.Name,
			IsHazardous:       o.IsHazardous,
			SpeedKmh:          parseFloat(approach.RelativeVelocity.KilometersPerHour),
			LunarDistance:     parseFloat(approach.MissDistance.Lunar),
			DiameterMaxMeters: o.EstimatedDiameter.Meters.Max,
		})
	}
	return out
}

// isoDate reduces an upstream timestamp to the calendar date it was written
// with. The offset is never applied, so a late-evening timestamp keeps its
// own day.
func isoDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return unknownDate
	}
	if len(raw) >= len(time.DateOnly) {
		if _, err := time.Parse(time.DateOnly, raw[:len(time.DateOnly)]); err == nil {
			return raw[:len(time.DateOnly)]
		}
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return unknownDate
	}
	return t.Format(time.DateOnly)
}

// plainExcerpt strips markup from an HTML-bearing description and cuts it to
// excerptRunes.
func plainExcerpt(description string) string {
	text := description
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(description)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= excerptRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:excerptRunes])) + "…"
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
