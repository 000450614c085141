package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"overdesk/internal/metrics"
	"overdesk/internal/model"
	"overdesk/internal/overrides"
	"overdesk/internal/schedule"
)

// handleListContainers returns the shallow container list.
// GET /api/containers
func (s *HTTPServer) handleListContainers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_containers")

	containers, err := s.service.ListContainers(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"containers": containers})
}

// handleGetContainer returns one container with derived entry statuses.
// GET /api/containers/{id}
func (s *HTTPServer) handleGetContainer(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_container")

	view, err := s.service.GetContainer(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateEntryResponse wraps the updated entry with its fresh classification
// so the console can repaint without a second fetch.
type UpdateEntryResponse struct {
	Entry  model.Entry           `json:"entry"`
	Errors []schedule.FieldError `json:"errors,omitempty"`
}

// handleUpdateEntry applies a window/engaged change to one entry.
// PUT /api/containers/{id}/entries/{name}
func (s *HTTPServer) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_entry")

	var cand model.CandidateUpdate
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cand); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entry, err := s.service.UpdateEntry(r.Context(), r.PathValue("id"), r.PathValue("name"), cand)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateEntryResponse{Entry: entry})
}

// writeServiceError maps typed service failures to status codes: validation
// to 400 with the full violation list, not-found to 404, upstream to 502.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var valErr *overrides.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"errors": valErr.Result.Errors,
		})
		return
	}
	if errors.Is(err, overrides.ErrEntryNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var upErr *overrides.UpstreamError
	if errors.As(err, &upErr) {
		s.logger.Error().Err(err).Msg("vendor call failed")
		writeError(w, http.StatusBadGateway, upErr.Error())
		return
	}
	s.logger.Error().Err(err).Msg("unhandled service error")
	writeError(w, http.StatusInternalServerError, "internal error")
}
