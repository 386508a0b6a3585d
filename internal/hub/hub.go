// Package hub is the registry of live lobbies. Like the lobbies themselves
// it is an actor: one goroutine owns the code -> lobby map and all access
// goes through typed messages with reply channels.
package hub

import (
	"context"
	"crypto/rand"
	"math/big"

	"go.uber.org/zap"

	"github.com/kai9kono/Kuiz/internal/history"
	"github.com/kai9kono/Kuiz/internal/lobby"
	"github.com/kai9kono/Kuiz/internal/questions"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

type HubMsg interface{ isHubMsg() }

// CreateLobby allocates a fresh code and starts a lobby with the host on the
// roster. The reply carries both so the HTTP layer can answer in one shot.
type CreateLobby struct {
	HostName string
	Reply    chan Created
}

type Created struct {
	Code  string
	Lobby *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     lobby.Config
	bank    questions.Bank
	history history.Recorder
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg lobby.Config, bank questions.Bank, rec history.Recorder, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		bank:    bank,
		history: rec,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down; senders should select on it so
// they never block on the inbox of a dead hub.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				code, err := h.freshCode()
				if err != nil {
					h.log.Error("code generation failed", zap.Error(err))
					msg.Reply <- Created{}
					break
				}
				lb := h.startLobby(code, msg.HostName)
				h.lobbies[code] = lb
				h.log.Info("lobby created", zap.String("code", code), zap.String("host", msg.HostName))
				msg.Reply <- Created{Code: code, Lobby: lb}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				delete(h.lobbies, msg.Code)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) startLobby(code, hostName string) *lobby.Lobby {
	onClose := func(code string) {
		// Do not block the lobby goroutine on the hub inbox.
		go func() {
			select {
			case h.inbox <- RemoveLobby{Code: code}:
			case <-h.ctx.Done():
			}
		}()
	}
	return lobby.NewLobby(h.ctx, code, hostName, h.cfg, h.bank, h.history, h.log, onClose)
}

// freshCode generates codes until one misses the live-lobby map. With 36^6
// codes collisions are rare; the retry loop handles the rest.
func (h *Hub) freshCode() (string, error) {
	for {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, taken := h.lobbies[code]; !taken {
			return code, nil
		}
	}
}

func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		select {
		case lb.Inbox() <- lobby.Shutdown{}:
		case <-lb.Done():
		}
	}
	clear(h.lobbies)
	h.cancel()
}
