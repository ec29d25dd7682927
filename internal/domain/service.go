package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultCallTimeout = 8 * time.Second

// heroLaneIDs are consulted in order for the explore page hero.
var heroLaneIDs = []string{LaneTrending, LaneMars}

// Sources groups the upstream APIs the service composes.
type Sources struct {
	Library      ImageLibrary
	PictureOfDay PictureOfDaySource
	NearEarth    NearEarthObjectFeed
}

// Options tunes a FeedService. Zero values select defaults.
type Options struct {
	// Location is the reference timezone for daily seeds and the hazard
	// feed. Defaults to UTC.
	Location *time.Location

	// CallTimeout bounds every single upstream call.
	CallTimeout time.Duration

	// Notifier receives like-count changes. Optional.
	Notifier LikeNotifier

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// FeedService is the core domain service. It owns the daily lane selection,
// the fallback ladder, like enrichment and the social operations.
type FeedService struct {
	lanes       []Lane
	seeds       *SeedCache
	sources     Sources
	store       Store
	notifier    LikeNotifier
	loc         *time.Location
	callTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewFeedService creates a FeedService for the given lanes.
func NewFeedService(lanes []Lane, sources Sources, store Store, opts Options, logger *slog.Logger) (*FeedService, error) {
	if len(lanes) == 0 {
		return nil, fmt.Errorf("at least one lane is required")
	}
	seen := make(map[string]struct{}, len(lanes))
	for _, l := range lanes {
		if err := l.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[l.ID]; dup {
			return nil, fmt.Errorf("lane %s: duplicate id", l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	if sources.Library == nil || sources.PictureOfDay == nil || sources.NearEarth == nil {
		return nil, fmt.Errorf("library, picture of the day and near-earth sources are required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FeedService{
		lanes:       lanes,
		seeds:       NewSeedCache(lanes, loc),
		sources:     sources,
		store:       store,
		notifier:    opts.Notifier,
		loc:         loc,
		callTimeout: timeout,
		now:         now,
		logger:      logger,
	}, nil
}

// Lanes returns the configured lanes in display order.
func (s *FeedService) Lanes() []Lane {
	return s.lanes
}

// Seed returns today's seed in the reference timezone.
func (s *FeedService) Seed() DailySeed {
	return s.seeds.Get(s.now())
}

// SeedFor returns the seed for an arbitrary day without touching the cache.
func (s *FeedService) SeedFor(day time.Time) DailySeed {
	return GenerateSeed(day, s.loc, s.lanes)
}

// Explore builds the explore page: every lane fetched concurrently, like
// counts attached with one bulk lookup, and the user's liked ids when userID
// is set. Upstream and store failures degrade to empty lanes and zero
// counts; Explore itself does not fail.
func (s *FeedService) Explore(ctx context.Context, userID string) *ExplorePage {
	seed := s.Seed()

	sections := make([]Section, len(s.lanes))
	var wg sync.WaitGroup
	for i, lane := range s.lanes {
		wg.Go(func() {
			items, tier := s.FetchLane(ctx, lane, seed.Lanes[lane.ID])
			s.logger.Info("lane fetched", "lane", lane.ID, "tier", tier, "items", len(items))
			sections[i] = Section{
				ID:       lane.ID,
				Title:    lane.Title,
				Subtitle: lane.Subtitle,
				Layout:   lane.Layout,
				Items:    items,
			}
		})
	}
	wg.Wait()

	ids := collectPostIDs(sections)
	s.applyLikeCounts(ctx, ids, sections)

	page := &ExplorePage{
		Date:     seed.Date,
		Hero:     pickHero(sections),
		Sections: sections,
		LikedIDs: s.likedIDs(ctx, userID, ids),
	}
	return page
}

// BulkLikeCounts returns a count for every id in postIDs, 0 for ids the
// store has no counter for. On a store error every id maps to 0 and the
// error is returned alongside.
func (s *FeedService) BulkLikeCounts(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	for _, id := range postIDs {
		counts[id] = 0
	}
	if len(postIDs) == 0 {
		return counts, nil
	}

	stored, err := s.store.GetLikeCounts(ctx, postIDs)
	if err != nil {
		return counts, fmt.Errorf("get like counts: %w", err)
	}
	for _, id := range postIDs {
		if n, ok := stored[id]; ok {
			counts[id] = n
		}
	}
	return counts, nil
}

// applyLikeCounts performs the single bulk lookup for ids and writes the
// counts onto every item of sections.
func (s *FeedService) applyLikeCounts(ctx context.Context, ids []string, sections []Section) {
	counts, err := s.BulkLikeCounts(ctx, ids)
	if err != nil {
		s.logger.Error("bulk like lookup failed, using zero counts", "ids", len(ids), "error", err)
	}
	for i := range sections {
		for j := range sections[i].Items {
			sections[i].Items[j].Likes = counts[sections[i].Items[j].ID]
		}
	}
}

func (s *FeedService) likedIDs(ctx context.Context, userID string, ids []string) []string {
	if userID == "" || len(ids) == 0 {
		return []string{}
	}
	liked, err := s.store.LikedPostIDs(ctx, userID, ids)
	if err != nil {
		s.logger.Error("liked ids lookup failed", "user_id", userID, "error", err)
		return []string{}
	}
	if liked == nil {
		liked = []string{}
	}
	return liked
}

// collectPostIDs returns every item id across sections, deduplicated, in
// first-seen order.
func collectPostIDs(sections []Section) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, sec := range sections {
		for _, p := range sec.Items {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func pickHero(sections []Section) *Post {
	for _, id := range heroLaneIDs {
		for _, sec := range sections {
			if sec.ID == id && len(sec.Items) > 0 {
				hero := sec.Items[0]
				return &hero
			}
		}
	}
	return nil
}
