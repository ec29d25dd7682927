package domain

import "fmt"

// Lane is a thematic content category of the explore page.
type Lane struct {
	ID       string
	Title    string
	Subtitle string
	Layout   Layout

	// Limit is the maximum number of items the lane shows.
	Limit int

	// Terms is the pool daily queries are drawn from.
	Terms []string

	// HardFallback is a single-term query known to have results on the
	// library index. It needs revalidating if the index changes.
	HardFallback string
}

func (l Lane) validate() error {
	if l.ID == "" {
		return fmt.Errorf("lane id is required")
	}
	if len(l.Terms) < termsPerQuery {
		return fmt.Errorf("lane %s: at least %d terms are required", l.ID, termsPerQuery)
	}
	if l.HardFallback == "" {
		return fmt.Errorf("lane %s: hard fallback query is required", l.ID)
	}
	if l.Limit < 1 {
		return fmt.Errorf("lane %s: limit must be positive", l.ID)
	}
	return nil
}

const (
	LaneTrending = "trending"
	LaneMars     = "mars"
	LaneEarth    = "earth"
	LaneClassics = "classics"
)

// DefaultLanes returns the explore page lanes in display order.
func DefaultLanes() []Lane {
	return []Lane{
		{
			ID:       LaneTrending,
			Title:    "Mission Control",
			Subtitle: "Daily highlights from space exploration.",
			Layout:   LayoutRow,
			Limit:    10,
			Terms: []string{
				"James Webb Space Telescope",
				"JWST deep field",
				"JWST galaxy",
				"NASA space telescope",
				"infrared universe",
			},
			HardFallback: "James Webb Space Telescope",
		},
		{
			ID:       LaneMars,
			Title:    "The Red Planet",
			Subtitle: "Mars and the machines exploring it.",
			Layout:   LayoutGrid,
			Limit:    8,
			Terms: []string{
				"Mars surface",
				"Mars rover",
				"Perseverance rover",
				"Curiosity rover",
			},
			HardFallback: "Mars",
		},
		{
			ID:       LaneEarth,
			Title:    "Earth Orbit",
			Subtitle: "Our planet from low Earth orbit.",
			Layout:   LayoutRow,
			Limit:    6,
			Terms: []string{
				"International Space Station",
				"Earth from space",
				"ISS Earth view",
				"astronaut photography",
			},
			HardFallback: "Earth from space",
		},
		{
			ID:       LaneClassics,
			Title:    "Cosmic Wonders",
			Subtitle: "Timeless views of the universe.",
			Layout:   LayoutGrid,
			Limit:    12,
			Terms: []string{
				"Nebula",
				"Galaxy",
				"Supernova",
				"Star formation",
				"Milky Way",
			},
			HardFallback: "Nebula",
		},
	}
}
