package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classicsLane(t *testing.T) Lane {
	t.Helper()
	for _, l := range DefaultLanes() {
		if l.ID == LaneClassics {
			return l
		}
	}
	t.Fatal("classics lane missing")
	return Lane{}
}

func TestFetchLaneSeededTierWins(t *testing.T) {
	f := newServiceFixture(t)
	f.library.respond = func(SearchParams) ([]Post, error) { return makePosts("c", 20), nil }

	lane := classicsLane(t)
	seed := f.service.SeedFor(referenceDay).Lanes[LaneClassics]

	items, tier := f.service.FetchLane(context.Background(), lane, seed)
	assert.Equal(t, "seeded", tier)
	assert.Len(t, items, lane.Limit)

	require.Len(t, f.library.calls, 1)
	assert.Equal(t, SearchParams{
		Query:      "Galaxy Star formation",
		MediaTypes: []MediaType{MediaImage},
		Page:       5,
		PageSize:   30,
		YearStart:  1997,
		YearEnd:    2002,
	}, f.library.calls[0])
}

func TestFetchLaneFallsBackToFirstPage(t *testing.T) {
	f := newServiceFixture(t)
	f.library.respond = func(p SearchParams) ([]Post, error) {
		if p.Query == "Galaxy Star formation" && p.Page == 1 && p.YearStart == 0 {
			return makePosts("c", 5), nil
		}
		return nil, nil
	}

	lane := classicsLane(t)
	seed := f.service.SeedFor(referenceDay).Lanes[LaneClassics]

	items, tier := f.service.FetchLane(context.Background(), lane, seed)
	assert.Equal(t, "first-page", tier)
	assert.Len(t, items, min(5, lane.Limit))
	assert.Len(t, f.library.calls, 2)
}

func TestFetchLaneWalksEveryTierInOrder(t *testing.T) {
	f := newServiceFixture(t)
	f.library.respond = func(SearchParams) ([]Post, error) { return nil, nil }

	lane := classicsLane(t)
	seed := f.service.SeedFor(referenceDay).Lanes[LaneClassics]

	items, tier := f.service.FetchLane(context.Background(), lane, seed)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, "", tier)

	image := []MediaType{MediaImage}
	want := []SearchParams{
		{Query: "Galaxy Star formation", MediaTypes: image, Page: 5, PageSize: 30, YearStart: 1997, YearEnd: 2002},
		{Query: "Galaxy Star formation", MediaTypes: image, Page: 1, PageSize: 30},
		{Query: "Galaxy Star formation", MediaTypes: image, PageSize: 30},
		{Query: "Star formation", MediaTypes: image, PageSize: 30},
		{Query: "Nebula", MediaTypes: image, PageSize: 30},
	}
	assert.Equal(t, want, f.library.calls)
}

func TestFetchLaneStopsAtFirstNonEmptyTier(t *testing.T) {
	for i, strategy := range fallbackLadder {
		t.Run(strategy.name, func(t *testing.T) {
			f := newServiceFixture(t)
			calls := 0
			f.library.respond = func(SearchParams) ([]Post, error) {
				calls++
				if calls == i+1 {
					return makePosts("x", 3), nil
				}
				return nil, nil
			}

			items, tier := f.service.FetchLane(context.Background(), classicsLane(t), f.service.SeedFor(referenceDay).Lanes[LaneClassics])
			assert.Equal(t, strategy.name, tier)
			assert.Len(t, items, 3)
			assert.Equal(t, i+1, calls)
		})
	}
}

func TestFetchLaneTreatsErrorsAsEmpty(t *testing.T) {
	f := newServiceFixture(t)
	f.library.respond = func(p SearchParams) ([]Post, error) {
		if p.Query == "Nebula" {
			return makePosts("n", 2), nil
		}
		return nil, errUpstream
	}

	items, tier := f.service.FetchLane(context.Background(), classicsLane(t), f.service.SeedFor(referenceDay).Lanes[LaneClassics])
	assert.Equal(t, "hard-fallback", tier)
	assert.Len(t, items, 2)
}

func TestFetchLaneTimeoutCountsAsEmpty(t *testing.T) {
	f := newServiceFixture(t)
	f.service.callTimeout = 10 * time.Millisecond

	f.library.respond = func(p SearchParams) ([]Post, error) {
		if p.Page == 5 {
			time.Sleep(50 * time.Millisecond)
			return nil, context.DeadlineExceeded
		}
		return makePosts("c", 1), nil
	}

	_, tier := f.service.FetchLane(context.Background(), classicsLane(t), f.service.SeedFor(referenceDay).Lanes[LaneClassics])
	assert.Equal(t, "first-page", tier)
}

func TestFetchLaneFiltersUndisplayableItems(t *testing.T) {
	f := newServiceFixture(t)
	f.library.respond = func(SearchParams) ([]Post, error) {
		posts := makePosts("c", 4)
		posts[0].ImageURL = PlaceholderImage
		posts[1].Title = ""
		posts[2].ImageURL = ""
		return posts, nil
	}

	items, tier := f.service.FetchLane(context.Background(), classicsLane(t), f.service.SeedFor(referenceDay).Lanes[LaneClassics])
	assert.Equal(t, "seeded", tier)
	require.Len(t, items, 1)
	assert.Equal(t, "c-3", items[0].ID)
}

func TestFetchLaneAllUndisplayableFallsThrough(t *testing.T) {
	f := newServiceFixture(t)
	f.library.respond = func(p SearchParams) ([]Post, error) {
		posts := makePosts("c", 3)
		if p.Page == 5 {
			for i := range posts {
				posts[i].ImageURL = PlaceholderImage
			}
		}
		return posts, nil
	}

	_, tier := f.service.FetchLane(context.Background(), classicsLane(t), f.service.SeedFor(referenceDay).Lanes[LaneClassics])
	assert.Equal(t, "first-page", tier)
}
