package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kai9kono/Kuiz/internal/hub"
	"github.com/kai9kono/Kuiz/internal/lobby"
)

type createLobbyRequest struct {
	HostName string `json:"host_name"`
}

type createLobbyResponse struct {
	Code string `json:"code"`
}

// CreateLobby registers a lobby for the host and returns its join code. The
// host then attaches over the websocket with the same name.
func CreateLobby(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostName == "" {
			http.Error(w, "host_name is required", http.StatusBadRequest)
			return
		}

		reply := make(chan hub.Created, 1)
		select {
		case h.Inbox() <- hub.CreateLobby{HostName: req.HostName, Reply: reply}:
		case <-h.Done():
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		var created hub.Created
		select {
		case created = <-reply:
		case <-h.Done():
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		if created.Lobby == nil {
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createLobbyResponse{Code: created.Code})
	}
}

// GetLobbyState is the pull side of the state contract: a full snapshot of
// the roster, scores and current round.
func GetLobbyState(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		reply := make(chan *lobby.Lobby, 1)
		select {
		case h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}:
		case <-h.Done():
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		var lb *lobby.Lobby
		select {
		case lb = <-reply:
		case <-h.Done():
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		viewReply := make(chan lobby.View, 1)
		select {
		case lb.Inbox() <- lobby.GetState{Reply: viewReply}:
		case <-lb.Done():
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}
		select {
		case view := <-viewReply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(view.Snapshot)
		case <-lb.Done():
			http.Error(w, "lobby not found", http.StatusNotFound)
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
