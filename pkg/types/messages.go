// Package types is the wire contract between the session server and its
// clients. Any transport that can carry these messages (the websocket hub
// here, or an HTTP poller) is interchangeable; the payloads are a small
// closed set of tagged variants decoded once at the transport boundary.
package types

// Client -> server message types. Joining rides the websocket handshake
// query parameters, not a message.
const (
	MsgLeaveLobby   = "LeaveLobby"
	MsgStartGame    = "StartGame"
	MsgBuzz         = "Buzz"
	MsgSubmitAnswer = "SubmitAnswer"
	MsgStateSync    = "StateSync"
)

// Server -> client message types.
const (
	MsgLobbyState   = "LobbyState"
	MsgStateChanged = "StateChanged"
	MsgBuzzAccepted = "BuzzAccepted"
	MsgAnswerGraded = "AnswerGraded"
	MsgRoundStarted = "RoundStarted"
	MsgRoundEnded   = "RoundEnded"
	MsgGameEnded    = "GameEnded"
	MsgError        = "Error"
)

// ClientMessage is everything a client may send after connecting. Fields
// beyond Type are populated per message type.
type ClientMessage struct {
	Type         string `json:"type"`
	Name         string `json:"name,omitempty"`
	Text         string `json:"text,omitempty"`
	PointsToWin  int    `json:"points_to_win,omitempty"`
	MaxMistakes  int    `json:"max_mistakes,omitempty"`
	NumQuestions int    `json:"num_questions,omitempty"`
}

// ServerMessage is the envelope for every push to a client.
type ServerMessage struct {
	Type    string    `json:"type"`
	Version int       `json:"version,omitempty"`
	State   *Snapshot `json:"state,omitempty"`
	Player  string    `json:"player,omitempty"`
	Correct bool      `json:"correct,omitempty"`
	Answer  string    `json:"answer,omitempty"`
	Winner  string    `json:"winner,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Error   string    `json:"error,omitempty"`
}
