package domain

// PlaceholderImage is the image URL assigned to library items that carry no
// preview link. Posts with this URL are never displayed.
const PlaceholderImage = "/placeholder.jpg"

// MediaType is the kind of asset a post points at.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// ParseMediaType returns the MediaType named by s and whether it is known.
func ParseMediaType(s string) (MediaType, bool) {
	switch MediaType(s) {
	case MediaImage, MediaVideo, MediaAudio:
		return MediaType(s), true
	default:
		return "", false
	}
}

// Source identifies the upstream system a post was normalized from.
type Source string

const (
	SourcePictureOfDay Source = "APOD"
	SourceLibrary      Source = "NASA_LIB"
)

// Post is the common shape every upstream item is normalized into.
type Post struct {
	// ID is "apod-<date>" for pictures of the day and the nasa_id for
	// library items.
	ID string `json:"id"`

	Title string `json:"title"`

	// Description is the upstream text as received and may contain HTML.
	Description string `json:"description"`

	// Excerpt is a short plain-text rendition of Description.
	Excerpt string `json:"excerpt,omitempty"`

	// ImageURL is the preview image, or the page/video link for non-image
	// pictures of the day.
	ImageURL string `json:"imageUrl"`

	// Date is an ISO calendar date, or "Unknown Date".
	Date string `json:"date"`

	MediaType MediaType `json:"mediaType"`
	Source    Source    `json:"source"`

	// Likes is the global like count, zero until enriched.
	Likes int `json:"likes"`
}

// Displayable reports whether the post has everything a card needs.
func (p *Post) Displayable() bool {
	return p.ImageURL != "" && p.ImageURL != PlaceholderImage && p.Title != ""
}

// Layout is how the UI arranges a section.
type Layout string

const (
	LayoutGrid     Layout = "grid"
	LayoutRow      Layout = "row"
	LayoutFeatured Layout = "featured"
)

// Section is one rendered lane of the explore page.
type Section struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Layout   Layout `json:"layout"`
	Items    []Post `json:"items"`
}

// ExplorePage is the response body for the explore view.
type ExplorePage struct {
	// Date is the reference-timezone calendar day the lanes were seeded for.
	Date string `json:"date"`

	// Hero is the first trending item, falling back to the first mars item.
	// Nil when both lanes came back empty.
	Hero *Post `json:"hero"`

	Sections []Section `json:"sections"`

	// LikedIDs lists the page's post ids liked by the requesting user.
	LikedIDs []string `json:"likedIds"`
}

// SearchRequest describes a free-text library search.
type SearchRequest struct {
	Query      string
	Page       int
	MediaTypes []MediaType
	UserID     string
}

// SearchResult is one page of search results.
type SearchResult struct {
	Query    string   `json:"query"`
	Page     int      `json:"page"`
	Items    []Post   `json:"items"`
	LikedIDs []string `json:"likedIds"`
	HasMore  bool     `json:"hasMore"`
}

// filterDisplayable keeps displayable posts in order, stopping once limit
// posts have been kept. A limit <= 0 keeps everything.
func filterDisplayable(posts []Post, limit int) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if !p.Displayable() {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
