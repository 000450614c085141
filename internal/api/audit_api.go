package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"overdesk/internal/metrics"
)

// handleListAudit returns recent entry-update audit records, newest first.
// GET /api/audit?limit=N
func (s *HTTPServer) handleListAudit(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_audit")

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.database.ListAuditRecords(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list audit failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// handleAuditExport streams the local tables as an Excel workbook.
// GET /api/audit/export
func (s *HTTPServer) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("audit_export")

	filename := fmt.Sprintf("overdesk_audit_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.exporter.WriteWorkbook(r.Context(), w); err != nil {
		// Headers are already out; log and drop the connection.
		s.logger.Error().Err(err).Msg("audit export failed")
	}
}
