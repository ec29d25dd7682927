package domain

import (
	"context"
)

// lanePageSize is the number of raw items requested per ladder tier.
const lanePageSize = 30

var laneMediaTypes = []MediaType{MediaImage}

// fetchStrategy is one tier of the lane fallback ladder.
type fetchStrategy struct {
	name   string
	params func(lane Lane, seed LaneSeed) SearchParams
}

// fallbackLadder is tried in order until a tier yields a displayable item.
// Each tier is more permissive than the one before it.
var fallbackLadder = []fetchStrategy{
	{
		name: "seeded",
		params: func(_ Lane, seed LaneSeed) SearchParams {
			return SearchParams{
				Query:     seed.Query,
				Page:      seed.Page,
				YearStart: seed.YearStart,
				YearEnd:   seed.YearEnd,
			}
		},
	},
	{
		// The seeded page may lie past the last result page.
		name: "first-page",
		params: func(_ Lane, seed LaneSeed) SearchParams {
			return SearchParams{Query: seed.Query, Page: 1}
		},
	},
	{
		name: "unfiltered",
		params: func(_ Lane, seed LaneSeed) SearchParams {
			return SearchParams{Query: seed.Query}
		},
	},
	{
		name: "alternate-term",
		params: func(_ Lane, seed LaneSeed) SearchParams {
			return SearchParams{Query: seed.AltQuery}
		},
	},
	{
		name: "hard-fallback",
		params: func(lane Lane, _ LaneSeed) SearchParams {
			return SearchParams{Query: lane.HardFallback}
		},
	},
}

// FetchLane walks the fallback ladder for lane and returns the first
// non-empty result, filtered and truncated to the lane limit, along with the
// name of the tier that produced it. When every tier is empty it returns an
// empty slice and an empty tier name.
func (s *FeedService) FetchLane(ctx context.Context, lane Lane, seed LaneSeed) ([]Post, string) {
	for _, strategy := range fallbackLadder {
		params := strategy.params(lane, seed)
		params.MediaTypes = laneMediaTypes
		params.PageSize = lanePageSize

		items := s.tryFetch(ctx, lane.ID, strategy.name, params, lane.Limit)
		if len(items) > 0 {
			return items, strategy.name
		}
		s.logger.Debug("lane tier empty", "lane", lane.ID, "tier", strategy.name, "query", params.Query)
	}

	s.logger.Warn("lane exhausted every tier", "lane", lane.ID)
	return []Post{}, ""
}

// tryFetch runs one tier. Errors and timeouts count as an empty result.
func (s *FeedService) tryFetch(ctx context.Context, laneID, tier string, params SearchParams, limit int) []Post {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	posts, err := s.sources.Library.Search(callCtx, params)
	if err != nil {
		s.logger.Warn("lane tier failed", "lane", laneID, "tier", tier, "query", params.Query, "error", err)
		return nil
	}
	return filterDisplayable(posts, limit)
}
