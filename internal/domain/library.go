package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	searchPageSize = 100

	trendingQuery     = "James Webb Space Telescope"
	trendingYearStart = 2023
	trendingPageSize  = 25

	popularQuery    = "earth"
	popularPageSize = 60
	popularLimit    = 24

	pictureOfDayIDPrefix = "apod-"
)

var defaultSearchMediaTypes = []MediaType{MediaImage, MediaVideo}

// Search runs a free-text library search. An empty query returns an empty
// result without calling upstream. Only a rejected API key is returned as an
// error; other upstream failures yield an empty result.
func (s *FeedService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	page := req.Page
	if page < 1 {
		page = 1
	}

	result := &SearchResult{
		Query:    query,
		Page:     page,
		Items:    []Post{},
		LikedIDs: []string{},
	}
	if query == "" {
		return result, nil
	}

	mediaTypes := req.MediaTypes
	if req.MediaTypes == nil {
		mediaTypes = defaultSearchMediaTypes
	} else if len(req.MediaTypes) == 0 {
		mediaTypes = []MediaType{MediaImage}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	raw, err := s.sources.Library.Search(callCtx, SearchParams{
		Query:      query,
		MediaTypes: mediaTypes,
		Page:       page,
		PageSize:   searchPageSize,
	})
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			return nil, fmt.Errorf("search library: %w", err)
		}
		s.logger.Warn("library search unavailable", "query", query, "page", page, "error", err)
		return result, nil
	}

	result.Items = filterDisplayable(raw, 0)
	result.HasMore = len(raw) >= searchPageSize

	ids := postIDs(result.Items)
	s.applyLikeCounts(ctx, ids, []Section{{Items: result.Items}})
	result.LikedIDs = s.likedIDs(ctx, req.UserID, ids)
	return result, nil
}

// TrendingFeed returns recent telescope imagery and video.
func (s *FeedService) TrendingFeed(ctx context.Context) ([]Post, error) {
	posts, err := s.fixedFeed(ctx, SearchParams{
		Query:      trendingQuery,
		MediaTypes: []MediaType{MediaImage, MediaVideo},
		YearStart:  trendingYearStart,
		PageSize:   trendingPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("trending feed: %w", err)
	}
	return posts, nil
}

// PopularFeed returns a daily shuffle of a larger pool of Earth imagery.
// The order is stable for the day.
func (s *FeedService) PopularFeed(ctx context.Context) ([]Post, error) {
	posts, err := s.fixedFeed(ctx, SearchParams{
		Query:      popularQuery,
		MediaTypes: []MediaType{MediaImage},
		PageSize:   popularPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("popular feed: %w", err)
	}

	rng := NewSeededRandom(uint32(s.Seed().DayKey))
	posts = Shuffle(rng, posts)
	if len(posts) > popularLimit {
		posts = posts[:popularLimit]
	}
	return posts, nil
}

// fixedFeed degrades to an empty feed on upstream failure, except for a
// rejected API key.
func (s *FeedService) fixedFeed(ctx context.Context, params SearchParams) ([]Post, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	raw, err := s.sources.Library.Search(callCtx, params)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			return nil, err
		}
		s.logger.Warn("feed source unavailable", "query", params.Query, "error", err)
		return []Post{}, nil
	}

	posts := filterDisplayable(raw, 0)
	s.applyLikeCounts(ctx, postIDs(posts), []Section{{Items: posts}})
	return posts, nil
}

// PostByID resolves a single post with its like count. Ids of the form
// "apod-YYYY-MM-DD" resolve through the picture of the day API, everything
// else through the library.
func (s *FeedService) PostByID(ctx context.Context, id string) (*Post, error) {
	post, err := s.resolvePost(ctx, id)
	if err != nil {
		return nil, err
	}

	post.Likes = s.likeCount(ctx, post.ID)
	return post, nil
}

func (s *FeedService) resolvePost(ctx context.Context, id string) (*Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: post id is empty", ErrInvalidArgument)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	if date, ok := strings.CutPrefix(id, pictureOfDayIDPrefix); ok {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return nil, fmt.Errorf("%w: malformed picture of the day id %q", ErrInvalidArgument, id)
		}
		post, err := s.sources.PictureOfDay.PictureOfDay(callCtx, date)
		if err != nil {
			return nil, fmt.Errorf("fetch picture of the day %s: %w", date, err)
		}
		return post, nil
	}

	post, err := s.sources.Library.Lookup(callCtx, id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	return post, nil
}

func postIDs(posts []Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
