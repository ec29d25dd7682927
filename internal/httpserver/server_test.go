package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/space-feeds/internal/config"
	"github.com/blackmichael/space-feeds/internal/domain"
	"github.com/blackmichael/space-feeds/internal/nasa"
	"github.com/blackmichael/space-feeds/internal/realtime"
	"github.com/blackmichael/space-feeds/internal/sqlite"
)

var referenceDay = time.Date(2024, time.March, 7, 12, 0, 0, 0, time.UTC)

type libraryItem struct {
	Data  []map[string]string `json:"data"`
	Links []map[string]string `json:"links"`
}

func item(id, title string) libraryItem {
	return libraryItem{
		Data: []map[string]string{{
			"nasa_id":      id,
			"title":        title,
			"description":  "About " + title,
			"date_created": "2020-05-01T00:00:00Z",
			"media_type":   "image",
		}},
		Links: []map[string]string{{"href": "https://images.example/" + id + ".jpg"}},
	}
}

// fakeUpstream serves the three NASA endpoints from canned data.
func fakeUpstream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch r.URL.Path {
	case "/search":
		var items []libraryItem
		switch {
		case q.Get("nasa_id") == "PIA001":
			items = append(items, item("PIA001", "Jezero Crater"))
		case q.Get("nasa_id") != "":
		case q.Get("q") == "fail":
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		case q.Get("q") == "denied":
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		default:
			for i := range 3 {
				items = append(items, item(fmt.Sprintf("%s#%d", q.Get("q"), i), q.Get("q")))
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"collection": map[string]any{"items": items}})
	case "/planetary/apod":
		writeJSON(w, http.StatusOK, map[string]string{
			"title": "Pillars", "explanation": "Dust.", "url": "https://apod.example/p.jpg",
			"date": "2024-03-07", "media_type": "image",
		})
	case "/neo/rest/v1/feed":
		writeJSON(w, http.StatusOK, map[string]any{
			"near_earth_objects": map[string]any{
				q.Get("start_date"): []map[string]any{{
					"id": "1", "name": "(2024 EA)", "is_potentially_hazardous_asteroid": true,
					"estimated_diameter":  map[string]any{"meters": map[string]float64{"estimated_diameter_max": 50}},
					"close_approach_data": []map[string]any{{"relative_velocity": map[string]string{"kilometers_per_hour": "30000"}, "miss_distance": map[string]string{"lunar": "2.5"}}},
				}},
			},
		})
	default:
		http.NotFound(w, r)
	}
}

type testEnv struct {
	server *httptest.Server
	hub    *realtime.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	upstream := httptest.NewServer(http.HandlerFunc(fakeUpstream))
	t.Cleanup(upstream.Close)

	client := nasa.NewClient(nasa.Options{APIURL: upstream.URL, ImagesURL: upstream.URL, APIKey: "k"}, logger)

	store, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hub := realtime.NewHub(logger)
	t.Cleanup(hub.Close)

	svc, err := domain.NewFeedService(
		domain.DefaultLanes(),
		domain.Sources{Library: client, PictureOfDay: client, NearEarth: client},
		store,
		domain.Options{Notifier: hub, Now: func() time.Time { return referenceDay }},
		logger,
	)
	require.NoError(t, err)

	srv := NewServer(&config.Config{Port: 0}, svc, hub, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(userIDHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
}

func TestExplore(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/api/explore", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	page := decode[domain.ExplorePage](t, body)
	assert.Equal(t, "2024-03-07", page.Date)
	require.Len(t, page.Sections, 4)
	assert.Equal(t, []string{"trending", "mars", "earth", "classics"}, []string{
		page.Sections[0].ID, page.Sections[1].ID, page.Sections[2].ID, page.Sections[3].ID,
	})
	for _, s := range page.Sections {
		assert.Len(t, s.Items, 3, s.ID)
	}
	require.NotNil(t, page.Hero)
	assert.Equal(t, "James Webb Space Telescope JWST galaxy#0", page.Hero.ID)
	assert.NotNil(t, page.LikedIDs)
}

func TestSeed(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/explore/seed?date=2024-03-07", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	seed := decode[domain.DailySeed](t, body)
	assert.Equal(t, 20240307, seed.DayKey)
	assert.Equal(t, domain.LaneSeed{
		Query: "Perseverance rover Mars surface", AltQuery: "Curiosity rover", Page: 3, YearStart: 2012, YearEnd: 2015,
	}, seed.Lanes["mars"])

	resp, body = env.do(t, http.MethodGet, "/api/explore/seed", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 20240307, decode[domain.DailySeed](t, body).DayKey)

	resp, _ = env.do(t, http.MethodGet, "/api/explore/seed?date=March", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/search?q=nebula&media_type=image", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[domain.SearchResult](t, body)
	assert.Equal(t, "nebula", result.Query)
	assert.Len(t, result.Items, 3)
	assert.False(t, result.HasMore)

	resp, _ = env.do(t, http.MethodGet, "/api/search?q=nebula&media_type=hologram", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/search?q=nebula&page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/search?q=fail", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = decode[domain.SearchResult](t, body)
	assert.Equal(t, "fail", result.Query)
	assert.Empty(t, result.Items)
	assert.False(t, result.HasMore)

	resp, body = env.do(t, http.MethodGet, "/api/search?q=denied", "", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "UpstreamAuthFailed", decode[map[string]string](t, body)["error"])
}

func TestFixedFeeds(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/feeds/trending", "/api/feeds/popular"} {
		resp, body := env.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		feed := decode[struct {
			Items []domain.Post `json:"items"`
		}](t, body)
		assert.Len(t, feed.Items, 3, path)
	}
}

func TestPictureOfDayAndHazard(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/apod", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	post := decode[domain.Post](t, body)
	assert.Equal(t, "apod-2024-03-07", post.ID)
	assert.Equal(t, domain.SourcePictureOfDay, post.Source)

	resp, body = env.do(t, http.MethodGet, "/api/hazard", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[domain.HazardSummary](t, body)
	assert.Equal(t, "red", summary.StatusColor)
	assert.Equal(t, "2024 EA", summary.Asteroids[0].Name)
}

func TestLikeFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/posts/PIA001/like", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/posts/PIA001/like", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.LikeState{PostID: "PIA001", Liked: true, Count: 1}, decode[domain.LikeState](t, body))

	resp, body = env.do(t, http.MethodGet, "/api/likes/counts?ids=PIA001,,other", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"counts":{"PIA001":1,"other":0}}`, string(body))

	resp, body = env.do(t, http.MethodGet, "/api/posts/PIA001", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[domain.Post](t, body).Likes)

	resp, body = env.do(t, http.MethodGet, "/api/profile", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[domain.ProfilePage](t, body)
	assert.Equal(t, "u1", profile.Profile.Username)
	require.Len(t, profile.Posts, 1)
	assert.Equal(t, "PIA001", profile.Posts[0].ID)
}

func TestPostNotFound(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/api/posts/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NotFound", decode[map[string]string](t, body)["error"])

	resp, _ = env.do(t, http.MethodGet, "/api/posts/apod-someday", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPut, "/api/profile", "u1", strings.NewReader(`{"username":""}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/profile", "u1", strings.NewReader(`not json`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPut, "/api/profile", "u1", strings.NewReader(`{"username":"stargazer","avatarUrl":"https://cdn/a.png"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.Profile{UserID: "u1", Username: "stargazer", AvatarURL: "https://cdn/a.png"}, decode[domain.Profile](t, body))

	resp, body = env.do(t, http.MethodGet, "/api/profile", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stargazer", decode[domain.ProfilePage](t, body).Profile.Username)
}

func TestLikeStream(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/likes"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	resp, _ := env.do(t, http.MethodPost, "/api/posts/PIA001/like", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"like","postId":"PIA001","count":1}`, string(data))
}
