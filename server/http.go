package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wfunc/partyroom/logger"
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/room"
)

// Routes 注册 HTTP 路由
func (s *GameServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.monitor.Handler())
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/games", s.handleListGames)
		r.Get("/rooms/{code}", s.handlePreviewRoom)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnf("Failed to write response: %v", err)
	}
}

func (s *GameServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"rooms":    s.roomManager.Count(),
		"sessions": s.sessionManager.Count(),
	})
}

func (s *GameServer) handleListGames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"games":      s.roomManager.CatalogView(),
		"identities": models.Identities(),
	})
}

func (s *GameServer) handlePreviewRoom(w http.ResponseWriter, r *http.Request) {
	view, err := s.PreviewRoom(chi.URLParam(r, "code"))
	if errors.Is(err, room.ErrRoomNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": view})
}
