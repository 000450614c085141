package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"overdesk/internal/db"
	"overdesk/internal/metrics"
)

// handleListMappings returns all name mappings.
// GET /api/mappings
func (s *HTTPServer) handleListMappings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_mappings")

	mappings, err := s.database.ListMappings(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list mappings failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}

// UpsertMappingRequest is the body for PUT /api/mappings/{name}.
type UpsertMappingRequest struct {
	DisplayName string `json:"display_name"`
}

// handleUpsertMapping creates or renames the display name for a vendor
// entry name.
// PUT /api/mappings/{name}
func (s *HTTPServer) handleUpsertMapping(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("upsert_mapping")

	var req UpsertMappingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	mapping, err := s.database.UpsertMapping(r.Context(), r.PathValue("name"), req.DisplayName)
	if err != nil {
		s.logger.Error().Err(err).Msg("upsert mapping failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

// SetEngagedRequest is the body for PUT /api/mappings/{name}/engaged.
// ContainerID locates the vendor entry whose stored window is checked for
// conflicts before an engage flip is persisted.
type SetEngagedRequest struct {
	Engaged     bool   `json:"engaged"`
	ContainerID string `json:"container_id"`
}

// handleSetMappingEngaged flips the locally tracked engaged flag. Flipping
// to true first runs conflict validation against the entry's container so
// the flip cannot create two engaged overlapping entries.
// PUT /api/mappings/{name}/engaged
func (s *HTTPServer) handleSetMappingEngaged(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("set_mapping_engaged")

	var req SetEngagedRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := r.PathValue("name")
	if req.Engaged {
		if req.ContainerID == "" {
			writeError(w, http.StatusBadRequest, "container_id is required to engage")
			return
		}
		if err := s.service.CheckEngage(r.Context(), req.ContainerID, name); err != nil {
			s.writeServiceError(w, err)
			return
		}
	}

	if err := s.database.SetMappingEngaged(r.Context(), name, req.Engaged); err != nil {
		if errors.Is(err, db.ErrMappingNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("set mapping engaged failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vendor_name": name, "engaged": req.Engaged})
}

// handleDeleteMapping removes a mapping.
// DELETE /api/mappings/{name}
func (s *HTTPServer) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("delete_mapping")

	if err := s.database.DeleteMapping(r.Context(), r.PathValue("name")); err != nil {
		if errors.Is(err, db.ErrMappingNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("delete mapping failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
