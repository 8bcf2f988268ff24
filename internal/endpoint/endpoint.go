package endpoint

import "sync"

// InputFunc receives paddle input in [-1, 1].
type InputFunc func(value float64)

// Endpoint is the transport-neutral capability interface for one match
// participant. An endpoint is owned by exactly one session at a time
// and must not be shared across concurrently running matches.
type Endpoint interface {
	// ID returns the participant identity (user id, or a synthetic id
	// for AI opponents).
	ID() string

	// Send delivers an event to the participant. Must be non-blocking;
	// implementations should buffer and drop rather than stall the
	// match tick loop.
	Send(evt Event)

	// OnInput registers the handler invoked whenever the participant
	// produces paddle input. Registering replaces any prior handler.
	OnInput(fn InputFunc)

	// Done returns a channel that closes when the participant
	// disconnects or is closed.
	Done() <-chan struct{}

	// Close tears the endpoint down. Safe to call multiple times.
	Close()
}

// ChannelEndpoint is an Endpoint backed by a buffered event channel.
// Network transports bridge it to a connection: they read Events() and
// write them to the wire, and call SubmitInput for inbound messages.
type ChannelEndpoint struct {
	id     string
	events chan Event

	mu      sync.RWMutex
	handler InputFunc

	done     chan struct{}
	doneOnce sync.Once
}

// NewChannelEndpoint creates a channel-backed endpoint. bufferSize
// controls how many events can queue before old ones are dropped.
func NewChannelEndpoint(id string, bufferSize int) *ChannelEndpoint {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &ChannelEndpoint{
		id:     id,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
}

// ID returns the participant identity.
func (e *ChannelEndpoint) ID() string {
	return e.id
}

// Send queues an event for the transport. When the buffer is full the
// oldest event is dropped; a stale state snapshot is worth less than a
// stalled tick loop.
func (e *ChannelEndpoint) Send(evt Event) {
	select {
	case <-e.done:
		return
	default:
	}

	select {
	case e.events <- evt:
	default:
		select {
		case <-e.events:
		default:
		}
		select {
		case e.events <- evt:
		default:
		}
	}
}

// Events returns the channel the transport reads outbound events from.
func (e *ChannelEndpoint) Events() <-chan Event {
	return e.events
}

// OnInput registers the session's input handler.
func (e *ChannelEndpoint) OnInput(fn InputFunc) {
	e.mu.Lock()
	e.handler = fn
	e.mu.Unlock()
}

// SubmitInput forwards a wire-level input value to the owning session.
// Unknown or out-of-range values are the session's concern; the
// endpoint just relays.
func (e *ChannelEndpoint) SubmitInput(value float64) {
	e.mu.RLock()
	fn := e.handler
	e.mu.RUnlock()
	if fn != nil {
		fn(value)
	}
}

// Done returns the disconnect channel.
func (e *ChannelEndpoint) Done() <-chan struct{} {
	return e.done
}

// Close marks the endpoint as disconnected. Safe to call repeatedly.
func (e *ChannelEndpoint) Close() {
	e.doneOnce.Do(func() {
		close(e.done)
	})
}

var _ Endpoint = (*ChannelEndpoint)(nil)
