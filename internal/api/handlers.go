package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/place-dedup/internal/export"
	"github.com/sells-group/place-dedup/internal/model"
	"github.com/sells-group/place-dedup/internal/review"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps review errors to HTTP status codes. Unexpected
// errors are logged and masked.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case eris.Is(err, review.ErrInvalidParameter):
		writeError(w, http.StatusBadRequest, err.Error())
	case eris.Is(err, review.ErrPlaceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case eris.Is(err, review.ErrTimeout):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"cache":  s.svc.CacheStats(),
	})
}

// parseFloatParam overwrites dst when the query has a value for key.
func parseFloatParam(q url.Values, key string, dst *float64) bool {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false
	}
	*dst = v
	return true
}

func parseIntParam(q url.Values, key string, dst *int) bool {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}
	*dst = v
	return true
}

func parseBoolParam(q url.Values, key string, dst *bool) bool {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	*dst = v
	return true
}

// placeDuplicates handles GET /places/{id}/duplicates.
func (s *Server) placeDuplicates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	det := s.svc.DetectionConfig()
	var opts review.CheckOptions

	switch {
	case !parseFloatParam(q, "name_threshold", &det.NameThreshold):
		writeError(w, http.StatusBadRequest, "invalid name_threshold")
		return
	case !parseFloatParam(q, "location_threshold_km", &det.LocationThresholdKM):
		writeError(w, http.StatusBadRequest, "invalid location_threshold_km")
		return
	case !parseFloatParam(q, "min_confidence", &det.MinConfidenceScore):
		writeError(w, http.StatusBadRequest, "invalid confidence threshold")
		return
	case !parseBoolParam(q, "include_archived", &opts.IncludeArchived):
		writeError(w, http.StatusBadRequest, "invalid include_archived")
		return
	}

	result, err := s.svc.CheckPlace(r.Context(), chi.URLParam(r, "id"), det, opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// clusters handles GET /duplicates/clusters. format=geojson returns a
// FeatureCollection instead of the JSON report.
func (s *Server) clusters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := s.svc.DefaultClusterQuery()

	switch {
	case !parseFloatParam(q, "min_confidence", &query.MinConfidence):
		writeError(w, http.StatusBadRequest, "invalid confidence threshold")
		return
	case !parseIntParam(q, "min_cluster_size", &query.MinClusterSize):
		writeError(w, http.StatusBadRequest, "invalid min cluster size")
		return
	case !parseIntParam(q, "limit", &query.Limit):
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	case !parseBoolParam(q, "include_archived", &query.IncludeArchived):
		writeError(w, http.StatusBadRequest, "invalid include_archived")
		return
	}

	format := strings.ToLower(q.Get("format"))
	if format != "" && format != "json" && format != "geojson" {
		writeError(w, http.StatusBadRequest, "invalid format")
		return
	}

	report, err := s.svc.Clusters(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if format == "geojson" {
		w.Header().Set("Content-Type", "application/geo+json")
		if err := export.WriteClustersGeoJSON(w, report.Clusters); err != nil {
			s.log.Error("write geojson", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type pairRequest struct {
	PlaceA string `json:"place_a"`
	PlaceB string `json:"place_b"`
}

func decodePair(r *http.Request) (pairRequest, error) {
	var req pairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, eris.Wrap(err, "api: decode pair")
	}
	return req, nil
}

// dismiss handles POST /duplicates/dismissed.
func (s *Server) dismiss(w http.ResponseWriter, r *http.Request) {
	req, err := decodePair(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.svc.Dismiss(r.Context(), req.PlaceA, req.PlaceB); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.NewDismissedPair(strings.TrimSpace(req.PlaceA), strings.TrimSpace(req.PlaceB)))
}

// undismiss handles DELETE /duplicates/dismissed.
func (s *Server) undismiss(w http.ResponseWriter, r *http.Request) {
	req, err := decodePair(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.svc.Undismiss(r.Context(), req.PlaceA, req.PlaceB); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listDismissed handles GET /duplicates/dismissed.
func (s *Server) listDismissed(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.svc.DismissedPairs(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if pairs == nil {
		pairs = []model.DismissedPair{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pairs": pairs, "total": len(pairs)})
}
