package nasa

// searchResponse is the images-api /search body.
type searchResponse struct {
	Collection struct {
		Items []libraryItem `json:"items"`
		Metadata struct {
			TotalHits int `json:"total_hits"`
		} `json:"metadata"`
	} `json:"collection"`
}

type libraryItem struct {
	Href  string        `json:"href"`
	Data  []libraryData `json:"data"`
	Links []libraryLink `json:"links"`
}

type libraryData struct {
	NasaID      string   `json:"nasa_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DateCreated string   `json:"date_created"`
	MediaType   string   `json:"media_type"`
	Center      string   `json:"center"`
	Keywords    []string `json:"keywords"`
}

type libraryLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Render string `json:"render"`
}

// apodResponse is the /planetary/apod body.
type apodResponse struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	URL         string `json:"url"`
	HDURL       string `json:"hdurl"`
	Date        string `json:"date"`
	MediaType   string `json:"media_type"`
	Copyright   string `json:"copyright"`
}

// neoFeedResponse is the /neo/rest/v1/feed body, keyed by approach date.
type neoFeedResponse struct {
	ElementCount     int                    `json:"element_count"`
	NearEarthObjects map[string][]neoObject `json:"near_earth_objects"`
}

type neoObject struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	IsHazardous       bool   `json:"is_potentially_hazardous_asteroid"`
	EstimatedDiameter struct {
		Meters struct {
			Min float64 `json:"estimated_diameter_min"`
			Max float64 `json:"estimated_diameter_max"`
		} `json:"meters"`
	} `json:"estimated_diameter"`
	CloseApproachData []closeApproach `json:"close_approach_data"`
}

type closeApproach struct {
	CloseApproachDate string `json:"close_approach_date"`
	RelativeVelocity  struct {
		KilometersPerHour string `json:"kilometers_per_hour"`
	} `json:"relative_velocity"`
	MissDistance struct {
		Lunar      string `json:"lunar"`
		Kilometers string `json:"kilometers"`
	} `json:"miss_distance"`
}
