package api

import (
	"encoding/json"
	"net/http"
)

// handleHealth implements spec §6's `GET /health` -> `200 "OK"`.
func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleTest implements spec §6's `GET /test` -> JSON health with counts.
func (h *routerHandlers) handleTest(w http.ResponseWriter, r *http.Request) {
	players, minions := 0, 0
	if h.state != nil {
		players = h.state.PlayerCount()
		minions = h.state.MinionCount()
	}
	writeJSON(w, map[string]interface{}{
		"status":      "ok",
		"playerCount": players,
		"minionCount": minions,
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
