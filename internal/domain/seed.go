package domain

import (
	"strings"
	"sync"
	"time"
)

const (
	termsPerQuery = 2

	minSeedPage = 1
	maxSeedPage = 6

	minYearStart  = 1996
	maxYearStart  = 2018
	minYearOffset = 3
	maxYearOffset = 8
	yearCeiling   = 2024
)

// LaneSeed holds the library query parameters picked for one lane on one day.
type LaneSeed struct {
	Query     string `json:"query"`
	AltQuery  string `json:"altQuery"`
	Page      int    `json:"page"`
	YearStart int    `json:"yearStart"`
	YearEnd   int    `json:"yearEnd"`
}

// DailySeed holds every lane's parameters for one calendar day.
type DailySeed struct {
	DayKey int                 `json:"dayKey"`
	Date   string              `json:"date"`
	Lanes  map[string]LaneSeed `json:"lanes"`
}

// GenerateSeed derives the lane seeds for day's calendar date in loc. Lanes
// draw from a single generator in the order given, so the result depends
// only on the date and the lane definitions.
func GenerateSeed(day time.Time, loc *time.Location, lanes []Lane) DailySeed {
	key := DayKey(day, loc)
	rng := NewSeededRandom(uint32(key))

	seed := DailySeed{
		DayKey: key,
		Date:   DayString(day, loc),
		Lanes:  make(map[string]LaneSeed, len(lanes)),
	}
	for _, lane := range lanes {
		seed.Lanes[lane.ID] = generateLaneSeed(rng, lane)
	}
	return seed
}

func generateLaneSeed(rng *SeededRandom, lane Lane) LaneSeed {
	terms := Shuffle(rng, lane.Terms)[:termsPerQuery]
	ls := LaneSeed{
		Query:    strings.Join(terms, " "),
		AltQuery: rng.Pick(lane.Terms),
		Page:     rng.Intn(minSeedPage, maxSeedPage),
	}
	ls.YearStart = rng.Intn(minYearStart, maxYearStart)
	ls.YearEnd = min(ls.YearStart+rng.Intn(minYearOffset, maxYearOffset), yearCeiling)
	return ls
}

// SeedCache keeps the most recently generated DailySeed and regenerates it
// when the calendar day changes. It is safe for concurrent use.
type SeedCache struct {
	loc   *time.Location
	lanes []Lane

	mu      sync.Mutex
	current *DailySeed
}

// NewSeedCache creates an empty cache for the given lanes and reference
// timezone.
func NewSeedCache(lanes []Lane, loc *time.Location) *SeedCache {
	return &SeedCache{loc: loc, lanes: lanes}
}

// Get returns the seed for now's calendar day.
func (c *SeedCache) Get(now time.Time) DailySeed {
	date := DayString(now, c.loc)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.current.Date == date {
		return *c.current
	}
	seed := GenerateSeed(now, c.loc, c.lanes)
	c.current = &seed
	return seed
}
