// Package gateway exposes the arena over the network. Both transports
// (SSH and WebSocket) speak the same JSON message protocol and share
// one bridge that binds a connection to a player endpoint.
package gateway

import (
	"github.com/arcadelab/paddle-arena/internal/endpoint"
	"github.com/arcadelab/paddle-arena/internal/sim"
	"github.com/arcadelab/paddle-arena/internal/tournament"
)

// Client command types.
const (
	CmdQueue            = "queue"
	CmdDequeue          = "dequeue"
	CmdLobbyCreate      = "lobby_create"
	CmdLobbyJoin        = "lobby_join"
	CmdTournamentCreate = "tournament_create"
	CmdTournamentJoin   = "tournament_join"
	CmdTournamentLeave  = "tournament_leave"
	CmdTournamentReady  = "tournament_ready"
	CmdInput            = "input"
)

// ClientMessage is one inbound command.
type ClientMessage struct {
	Type         string  `json:"type"`
	Rating       float64 `json:"rating,omitempty"`
	LobbyID      string  `json:"lobby_id,omitempty"`
	ExpirySec    int     `json:"expiry_s,omitempty"`
	TournamentID string  `json:"tournament_id,omitempty"`
	Capacity     int     `json:"capacity,omitempty"`
	Input        float64 `json:"input,omitempty"`
}

// ServerMessage is one outbound message: either an encoded match event
// or a command acknowledgement.
type ServerMessage struct {
	Type string `json:"type"`

	MatchID    string     `json:"match_id,omitempty"`
	Tick       uint64     `json:"tick,omitempty"`
	State      *sim.State `json:"state,omitempty"`
	Side       string     `json:"side,omitempty"`
	OpponentID string     `json:"opponent_id,omitempty"`
	Seconds    float64    `json:"seconds,omitempty"`
	Scorer     string     `json:"scorer,omitempty"`
	LeftScore  int        `json:"left_score,omitempty"`
	RightScore int        `json:"right_score,omitempty"`
	WinnerID   string     `json:"winner_id,omitempty"`
	Forfeit    bool       `json:"forfeit,omitempty"`
	Message    string     `json:"message,omitempty"`

	LobbyID      string    `json:"lobby_id,omitempty"`
	TournamentID string    `json:"tournament_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Round        int       `json:"round,omitempty"`
	Players      [2]string `json:"players,omitempty"`
}

// EncodeEvent translates a match event into its wire form.
func EncodeEvent(evt endpoint.Event) ServerMessage {
	msg := ServerMessage{Type: endpoint.KindOf(evt).String()}

	switch e := evt.(type) {
	case endpoint.StateEvent:
		state := e.State
		msg.MatchID = e.MatchID
		msg.Tick = e.Tick
		msg.State = &state
	case endpoint.GameFoundEvent:
		msg.MatchID = e.MatchID
		msg.Side = e.Side.String()
		msg.OpponentID = e.OpponentID
	case endpoint.CountdownEvent:
		msg.MatchID = e.MatchID
		msg.Seconds = e.Seconds
	case endpoint.GoalEvent:
		msg.MatchID = e.MatchID
		msg.Scorer = e.Scorer.String()
		msg.LeftScore = e.LeftScore
		msg.RightScore = e.RightScore
	case endpoint.GameOverEvent:
		msg.MatchID = e.MatchID
		msg.WinnerID = e.WinnerID
		msg.Forfeit = e.Forfeit
	case endpoint.ErrorEvent:
		msg.Message = e.Message
	}
	return msg
}

// EncodeTournamentEvent translates a bracket notification into its
// wire form.
func EncodeTournamentEvent(evt tournament.Event) ServerMessage {
	return ServerMessage{
		Type:         string(evt.Kind),
		TournamentID: evt.TournamentID,
		UserID:       evt.UserID,
		Round:        evt.Round,
		Players:      evt.Players,
		WinnerID:     evt.WinnerID,
	}
}

// ack builds a plain acknowledgement message.
func ack(kind string) ServerMessage {
	return ServerMessage{Type: kind}
}

// errorMessage builds an error notice for the client.
func errorMessage(err error) ServerMessage {
	return ServerMessage{Type: "error", Message: err.Error()}
}
