package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kai9kono/Kuiz/internal/engine"
	"github.com/kai9kono/Kuiz/internal/history"
	"github.com/kai9kono/Kuiz/internal/hub"
	"github.com/kai9kono/Kuiz/internal/lobby"
	"github.com/kai9kono/Kuiz/internal/questions"
	"github.com/kai9kono/Kuiz/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bank := questions.NewMemoryBank([]engine.Question{{ID: 1, Text: "q", Answer: "a"}})
	h := hub.NewHub(ctx, lobby.DefaultConfig(), bank, history.NopRecorder{}, zap.NewNop())

	srv := httptest.NewServer(SetupRoutes(h, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, h
}

func TestCreateLobbyAndFetchState(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/lobbies", "application/json", strings.NewReader(`{"host_name":"Taro"}`))
	if err != nil {
		t.Fatalf("create lobby: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("want 201, got %d", resp.StatusCode)
	}

	var created struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(created.Code) != 6 {
		t.Fatalf("want 6-char code, got %q", created.Code)
	}

	stateResp, err := http.Get(srv.URL + "/lobbies/" + created.Code)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer stateResp.Body.Close()
	if stateResp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", stateResp.StatusCode)
	}

	var snap types.Snapshot
	if err := json.NewDecoder(stateResp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Host != "Taro" || len(snap.Participants) != 1 {
		t.Fatalf("want Taro alone on the roster, got %+v", snap)
	}
}

func TestCreateLobbyRequiresHostName(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/lobbies", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("create lobby: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
}

func TestGetUnknownLobbyIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/lobbies/NOPE00")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}
}

func TestHandlersUnavailableAfterShutdown(t *testing.T) {
	srv, h := newTestServer(t)

	h.Inbox() <- hub.ShutdownHub{}
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for hub shutdown")
	}

	// Handlers must fail fast instead of blocking on the dead hub.
	resp, err := http.Post(srv.URL+"/lobbies", "application/json", strings.NewReader(`{"host_name":"Taro"}`))
	if err != nil {
		t.Fatalf("create lobby: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("want 503 after shutdown, got %d", resp.StatusCode)
	}

	stateResp, err := http.Get(srv.URL + "/lobbies/ABCDEF")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer stateResp.Body.Close()
	if stateResp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("want 503 after shutdown, got %d", stateResp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
}
