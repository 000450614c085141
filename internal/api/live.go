package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"overdesk/internal/metrics"
	"overdesk/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The console is same-origin in practice; token auth already ran in the
	// middleware before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveUpdate is one websocket frame: the container's entries re-classified
// at push time.
type LiveUpdate struct {
	ContainerID string              `json:"container_id"`
	At          time.Time           `json:"at"`
	Entries     []model.EntryStatus `json:"entries"`
}

// handleLive pushes re-derived entry statuses for one container on a fixed
// interval until the client disconnects.
// GET /api/containers/{id}/live (websocket)
func (s *HTTPServer) handleLive(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("live")
	containerID := r.PathValue("id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.pushLiveUpdate(r, conn, containerID); err != nil {
		return
	}

	ticker := time.NewTicker(s.liveRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := s.pushLiveUpdate(r, conn, containerID); err != nil {
				return
			}
		}
	}
}

func (s *HTTPServer) pushLiveUpdate(r *http.Request, conn *websocket.Conn, containerID string) error {
	view, err := s.service.GetContainer(r.Context(), containerID)
	if err != nil {
		s.logger.Warn().Err(err).Str("container", containerID).Msg("live refresh failed")
		// Keep the stream open through transient vendor failures.
		return nil
	}
	update := LiveUpdate{
		ContainerID: containerID,
		At:          time.Now().UTC(),
		Entries:     view.Entries,
	}
	if err := conn.WriteJSON(update); err != nil {
		return err
	}
	return nil
}
