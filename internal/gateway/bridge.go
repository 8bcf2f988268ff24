package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/arcadelab/paddle-arena/internal/endpoint"
	"github.com/arcadelab/paddle-arena/internal/lobby"
	"github.com/arcadelab/paddle-arena/internal/matchmaking"
	"github.com/arcadelab/paddle-arena/internal/tournament"
)

// Conn is one framed client connection. Implementations decode a
// ClientMessage per Read and encode a ServerMessage per Write; both the
// SSH and WebSocket transports satisfy it.
type Conn interface {
	Read() (ClientMessage, error)
	Write(msg ServerMessage) error
	Close() error
}

// ConnMetrics observes transport attach and detach.
type ConnMetrics interface {
	PlayerConnected()
	PlayerDisconnected()
}

// Services bundles everything a connection can talk to.
type Services struct {
	Queue       *matchmaking.Queue
	Lobbies     *lobby.Registry
	Tournaments *tournament.Orchestrator

	// LobbyExpiry is used when a lobby_create command carries no expiry.
	LobbyExpiry time.Duration

	Logger  *log.Logger
	Metrics ConnMetrics
}

// Bridge binds one connection to one player endpoint: outbound match
// events are written to the wire, inbound commands are dispatched to
// the services. A bridge lives exactly as long as its connection.
type Bridge struct {
	conn   Conn
	userID string
	svc    Services
	ep     *endpoint.ChannelEndpoint
	logger *log.Logger

	writeMu sync.Mutex

	mu     sync.Mutex
	joined map[string]bool
}

// NewBridge prepares a bridge for a connection identified as userID.
func NewBridge(conn Conn, userID string, svc Services) *Bridge {
	logger := svc.Logger
	if logger == nil {
		logger = log.Default()
	}
	if svc.LobbyExpiry <= 0 {
		svc.LobbyExpiry = 2 * time.Minute
	}
	return &Bridge{
		conn:   conn,
		userID: userID,
		svc:    svc,
		ep:     endpoint.NewChannelEndpoint(userID, 256),
		logger: logger.With("user_id", userID),
		joined: make(map[string]bool),
	}
}

// Endpoint exposes the player endpoint backing this connection.
func (b *Bridge) Endpoint() *endpoint.ChannelEndpoint {
	return b.ep
}

// Run pumps the connection until it closes or the endpoint is torn
// down by a finished match. It blocks; transports call it from the
// per-connection goroutine.
func (b *Bridge) Run() {
	if b.svc.Metrics != nil {
		b.svc.Metrics.PlayerConnected()
		defer b.svc.Metrics.PlayerDisconnected()
	}
	if b.svc.Tournaments != nil {
		cancel := b.svc.Tournaments.Subscribe(b.onTournamentEvent)
		defer cancel()
	}

	stop := make(chan struct{})
	defer close(stop)
	go b.writeLoop(stop)

	for {
		msg, err := b.conn.Read()
		if err != nil {
			b.logger.Debug("connection closed", "err", err)
			break
		}
		b.dispatch(msg)
	}

	if b.svc.Queue != nil {
		b.svc.Queue.Dequeue(b.userID)
	}
	b.ep.Close()
	b.conn.Close()
}

// writeLoop forwards endpoint events to the wire. When the endpoint is
// closed, the underlying match is over and the connection goes with it.
func (b *Bridge) writeLoop(stop <-chan struct{}) {
	for {
		select {
		case evt := <-b.ep.Events():
			if err := b.send(EncodeEvent(evt)); err != nil {
				b.conn.Close()
				return
			}
		case <-b.ep.Done():
			// Drain anything already queued before hanging up.
			for {
				select {
				case evt := <-b.ep.Events():
					if err := b.send(EncodeEvent(evt)); err != nil {
						b.conn.Close()
						return
					}
				default:
					b.conn.Close()
					return
				}
			}
		case <-stop:
			return
		}
	}
}

func (b *Bridge) dispatch(msg ClientMessage) {
	var err error
	switch msg.Type {
	case CmdInput:
		b.ep.SubmitInput(msg.Input)
		return
	case CmdQueue:
		if err = b.svc.Queue.Enqueue(b.ep, msg.Rating); err == nil {
			b.reply(ack("queued"))
		}
	case CmdDequeue:
		b.svc.Queue.Dequeue(b.userID)
		b.reply(ack("dequeued"))
	case CmdLobbyCreate:
		expiry := time.Duration(msg.ExpirySec) * time.Second
		if expiry <= 0 {
			expiry = b.svc.LobbyExpiry
		}
		if err = b.svc.Lobbies.Create(msg.LobbyID, expiry); err == nil {
			b.reply(ServerMessage{Type: "lobby_created", LobbyID: msg.LobbyID})
		}
	case CmdLobbyJoin:
		if err = b.svc.Lobbies.Join(msg.LobbyID, b.ep); err == nil {
			b.reply(ServerMessage{Type: "lobby_joined", LobbyID: msg.LobbyID})
		}
	case CmdTournamentCreate:
		var id string
		if id, err = b.svc.Tournaments.Create(msg.Capacity); err == nil {
			b.reply(ServerMessage{Type: "tournament_created", TournamentID: id})
		}
	case CmdTournamentJoin:
		// Register interest first so the join notification reaches us.
		b.setMember(msg.TournamentID, true)
		if err = b.svc.Tournaments.Join(msg.TournamentID, b.ep); err != nil {
			b.setMember(msg.TournamentID, false)
		}
	case CmdTournamentLeave:
		if err = b.svc.Tournaments.Leave(msg.TournamentID, b.userID); err == nil {
			b.setMember(msg.TournamentID, false)
		}
	case CmdTournamentReady:
		err = b.svc.Tournaments.Ready(msg.TournamentID, b.userID)
	default:
		// Malformed or unknown commands are dropped, not fatal.
		b.logger.Debug("unknown command", "type", msg.Type)
		return
	}

	if err != nil {
		b.logger.Warn("command rejected", "type", msg.Type, "err", err)
		b.reply(errorMessage(fmt.Errorf("%s: %w", msg.Type, err)))
	}
}

// onTournamentEvent relays bracket notifications for tournaments this
// connection has joined.
func (b *Bridge) onTournamentEvent(evt tournament.Event) {
	if !b.member(evt.TournamentID) {
		return
	}
	b.reply(EncodeTournamentEvent(evt))
	if evt.Kind == tournament.EventFinished {
		b.setMember(evt.TournamentID, false)
	}
}

// reply writes best-effort; a dead connection surfaces through the
// read loop.
func (b *Bridge) reply(msg ServerMessage) {
	if err := b.send(msg); err != nil {
		b.logger.Debug("write failed", "type", msg.Type, "err", err)
	}
}

func (b *Bridge) send(msg ServerMessage) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.Write(msg)
}

func (b *Bridge) member(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.joined[id]
}

func (b *Bridge) setMember(id string, in bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if in {
		b.joined[id] = true
	} else {
		delete(b.joined, id)
	}
}
