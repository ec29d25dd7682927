package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NearEarthObject is one close approach from the near-earth-object feed,
// taken from the object's first close-approach record.
type NearEarthObject struct {
	ID                string
	Name              string
	IsHazardous       bool
	SpeedKmh          float64
	LunarDistance     float64
	DiameterMaxMeters float64
}

// Asteroid is a display-ready near-earth object.
type Asteroid struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	IsHazardous       bool   `json:"isHazardous"`
	SpeedKmh          string `json:"speedKmh"`
	LunarDistance     string `json:"lunarDistance"`
	EstimatedDiameter string `json:"estimatedDiameter"`

	lunar float64
}

// HazardSummary is the daily near-earth-object story.
type HazardSummary struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	ThumbnailURL   string     `json:"thumbnailUrl"`
	StatusColor    string     `json:"statusColor"`
	Text           string     `json:"text"`
	Total          int        `json:"total"`
	HazardousCount int        `json:"hazardousCount"`
	Asteroids      []Asteroid `json:"asteroids"`
}

const (
	hazardStoryType      = "HAZARD"
	hazardThumbnail      = "/hazard-icon.png"
	hazardStatusRed      = "red"
	hazardStatusGreen    = "green"
	asteroidNameCutset   = "()"
	asteroidSpeedLocale  = "en"
	asteroidLunarDecimal = 2
)

var speedPrinter = message.NewPrinter(language.Make(asteroidSpeedLocale))

// BuildHazardSummary turns the objects approaching on date into a summary,
// closest approach first.
func BuildHazardSummary(date string, objects []NearEarthObject) *HazardSummary {
	asteroids := make([]Asteroid, 0, len(objects))
	hazardous := 0
	for _, o := range objects {
		if o.IsHazardous {
			hazardous++
		}
		asteroids = append(asteroids, Asteroid{
			ID:                o.ID,
			Name:              cleanAsteroidName(o.Name),
			IsHazardous:       o.IsHazardous,
			SpeedKmh:          speedPrinter.Sprintf("%d", int64(math.Round(o.SpeedKmh))),
			LunarDistance:     fmt.Sprintf("%.*f", asteroidLunarDecimal, o.LunarDistance),
			EstimatedDiameter: fmt.Sprintf("~%dm", int64(math.Round(o.DiameterMaxMeters))),
			lunar:             o.LunarDistance,
		})
	}

	sort.SliceStable(asteroids, func(i, j int) bool {
		return asteroids[i].lunar < asteroids[j].lunar
	})

	status := hazardStatusGreen
	if hazardous > 0 {
		status = hazardStatusRed
	}

	return &HazardSummary{
		ID:             "asteroid-" + date,
		Type:           hazardStoryType,
		ThumbnailURL:   hazardThumbnail,
		StatusColor:    status,
		Text:           fmt.Sprintf("%d Near Earth Objects (%d Hazardous)", len(asteroids), hazardous),
		Total:          len(asteroids),
		HazardousCount: hazardous,
		Asteroids:      asteroids,
	}
}

func cleanAsteroidName(name string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if strings.ContainsRune(asteroidNameCutset, r) {
			return -1
		}
		return r
	}, name))
}
