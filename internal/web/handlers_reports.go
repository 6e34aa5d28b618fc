package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/TripLoader/internal/core"
)

// maxReportLimit caps the limit query parameter.
const maxReportLimit = 10000

// listResponse wraps report rows with their count.
type listResponse[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Count: len(items), Items: items}
}

// queryLimit reads ?limit=, defaulting to core.DefaultReportLimit.
func queryLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return core.DefaultReportLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxReportLimit {
		return 0, false
	}
	return n, true
}

// queryZone reads the required ?zone= pickup zone.
func queryZone(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get("zone"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleTopDistance(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		respondBadRequest(w, r, "limit must be between 1 and 10000")
		return
	}
	trips, err := s.reports.TopByDistance(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, newList(trips))
}

func (s *Server) handleTopDuration(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		respondBadRequest(w, r, "limit must be between 1 and 10000")
		return
	}
	trips, err := s.reports.TopByDuration(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, newList(trips))
}

func (s *Server) handleTopTipZone(w http.ResponseWriter, r *http.Request) {
	zt, err := s.reports.TopTipZone(r.Context())
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, zt)
}

func (s *Server) handleAvgTip(w http.ResponseWriter, r *http.Request) {
	zone, ok := queryZone(r)
	if !ok {
		respondBadRequest(w, r, "zone must be a positive integer")
		return
	}
	zt, err := s.reports.AvgTipForZone(r.Context(), zone)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, zt)
}

func (s *Server) handleTripsByZone(w http.ResponseWriter, r *http.Request) {
	zone, ok := queryZone(r)
	if !ok {
		respondBadRequest(w, r, "zone must be a positive integer")
		return
	}
	limit, ok := queryLimit(r)
	if !ok {
		respondBadRequest(w, r, "limit must be between 1 and 10000")
		return
	}
	trips, err := s.reports.TripsByZone(r.Context(), zone, limit)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, newList(trips))
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status   string                   `json:"status"`
	Database string                   `json:"database"`
	Import   core.ImportLimiterStatus `json:"import"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	if l := s.service.Limiter(); l != nil {
		resp.Import = l.Status()
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	if err := s.db.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
