package domain

import "context"

// SearchParams are the query parameters of an image library search. Zero
// values are omitted from the request.
type SearchParams struct {
	Query      string
	MediaTypes []MediaType
	Page       int
	PageSize   int
	YearStart  int
	YearEnd    int
}

// ImageLibrary is the image and video library search API.
type ImageLibrary interface {
	// Search returns the normalized items of one result page, in upstream
	// order and without filtering.
	Search(ctx context.Context, params SearchParams) ([]Post, error)

	// Lookup fetches a single item by its nasa_id. Returns ErrPostNotFound
	// when the library has no such item.
	Lookup(ctx context.Context, nasaID string) (*Post, error)
}

// PictureOfDaySource is the astronomy picture of the day API.
type PictureOfDaySource interface {
	// PictureOfDay returns the picture for date (YYYY-MM-DD). An empty date
	// asks for the upstream's current picture.
	PictureOfDay(ctx context.Context, date string) (*Post, error)
}

// NearEarthObjectFeed is the near-earth-object feed API.
type NearEarthObjectFeed interface {
	// NearEarthObjects returns the objects approaching on date (YYYY-MM-DD).
	NearEarthObjects(ctx context.Context, date string) ([]NearEarthObject, error)
}

// LikeCounterRepository defines persistence operations for per-post
// aggregate like counters.
type LikeCounterRepository interface {
	// GetLikeCounts returns the counters stored for the given ids. Ids with
	// no counter row are absent from the result.
	GetLikeCounts(ctx context.Context, postIDs []string) (map[string]int, error)

	// GetLikeCount returns a single counter, 0 if none is stored.
	GetLikeCount(ctx context.Context, postID string) (int, error)

	// UpsertLikeCount stores count as the post's counter.
	UpsertLikeCount(ctx context.Context, postID string, count int) error
}

// LikeRepository defines persistence operations for per-user like relations.
type LikeRepository interface {
	HasLiked(ctx context.Context, userID, postID string) (bool, error)
	AddLike(ctx context.Context, userID, postID string) error
	RemoveLike(ctx context.Context, userID, postID string) error

	// LikedPostIDs returns the ids among postIDs liked by the user. A nil
	// postIDs returns every liked id, most recent first.
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) ([]string, error)
}

// ProfileRepository defines persistence operations for profile metadata.
type ProfileRepository interface {
	// GetProfile returns ErrProfileNotFound when no row exists.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, profile *Profile) error
}

// Store is the hosted relational store as a whole.
type Store interface {
	LikeRepository
	LikeCounterRepository
	ProfileRepository
}

// LikeNotifier receives like-count changes after they are persisted.
type LikeNotifier interface {
	PublishLike(event LikeEvent)
}
