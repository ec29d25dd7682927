package domain

import (
	"context"
	"errors"
	"fmt"
)

// PictureOfDay returns today's astronomy picture. A rejected API key is
// returned as ErrAuthFailed; any other upstream failure is logged and yields
// a nil post.
func (s *FeedService) PictureOfDay(ctx context.Context) (*Post, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	post, err := s.sources.PictureOfDay.PictureOfDay(callCtx, "")
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			return nil, fmt.Errorf("fetch picture of the day: %w", err)
		}
		s.logger.Error("picture of the day unavailable", "error", err)
		return nil, nil
	}

	post.Likes = s.likeCount(ctx, post.ID)
	return post, nil
}

// HazardSummary summarizes today's near-earth objects. A rejected API key is
// returned as ErrAuthFailed; any other upstream failure yields an empty
// summary.
func (s *FeedService) HazardSummary(ctx context.Context) (*HazardSummary, error) {
	date := DayString(s.now(), s.loc)

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	objects, err := s.sources.NearEarth.NearEarthObjects(callCtx, date)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			return nil, fmt.Errorf("fetch near-earth objects: %w", err)
		}
		s.logger.Error("near-earth feed unavailable", "date", date, "error", err)
		objects = nil
	}
	return BuildHazardSummary(date, objects), nil
}
