package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/blackmichael/space-feeds/internal/domain"
)

const maxBulkIDs = 200

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	page := s.feedService.Explore(r.Context(), userID(r))
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSON(w, http.StatusOK, s.feedService.Seed())
		return
	}

	day, err := time.ParseInLocation(time.DateOnly, date, s.cfg.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "date must be YYYY-MM-DD")
		return
	}
	writeJSON(w, http.StatusOK, s.feedService.SeedFor(day))
}

func (s *Server) handlePictureOfDay(w http.ResponseWriter, r *http.Request) {
	post, err := s.feedService.PictureOfDay(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "picture of the day", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleHazard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.feedService.HazardSummary(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "hazard summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if p := q.Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "page must be a positive integer")
			return
		}
		page = parsed
	}

	var mediaTypes []domain.MediaType
	if q.Has("media_type") {
		mediaTypes = []domain.MediaType{}
		for _, raw := range splitList(q.Get("media_type")) {
			mt, ok := domain.ParseMediaType(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "InvalidRequest", fmt.Sprintf("unknown media_type %q", raw))
				return
			}
			mediaTypes = append(mediaTypes, mt)
		}
	}

	result, err := s.feedService.Search(r.Context(), domain.SearchRequest{
		Query:      q.Get("q"),
		Page:       page,
		MediaTypes: mediaTypes,
		UserID:     userID(r),
	})
	if err != nil {
		s.writeDomainError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	posts, err := s.feedService.TrendingFeed(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "trending feed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": posts})
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	posts, err := s.feedService.PopularFeed(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "popular feed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": posts})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	post, err := s.feedService.PostByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, "post lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	state, err := s.feedService.ToggleLike(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, "toggle like", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleLikeCounts(w http.ResponseWriter, r *http.Request) {
	ids := splitList(r.URL.Query().Get("ids"))
	if len(ids) > maxBulkIDs {
		writeError(w, http.StatusBadRequest, "InvalidRequest", fmt.Sprintf("at most %d ids per request", maxBulkIDs))
		return
	}

	counts, err := s.feedService.BulkLikeCounts(r.Context(), ids)
	if err != nil {
		// counts is still complete (zero-filled); serve it.
		s.logger.Warn("like count lookup failed", "ids", len(ids), "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	page, err := s.feedService.Profile(r.Context(), userID(r))
	if err != nil {
		s.writeDomainError(w, r, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type updateProfileRequest struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "body must be a JSON profile")
		return
	}

	profile, err := s.feedService.UpdateProfile(r.Context(), domain.Profile{
		UserID:    userID(r),
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		s.writeDomainError(w, r, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

// splitList parses a comma-separated query value, dropping blanks.
func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
