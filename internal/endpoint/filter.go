package endpoint

import "sync"

// Filter wraps an inner endpoint and forwards only selected event
// kinds. It is used when a match is embedded inside a tournament
// session: match traffic is piped through the player's single
// persistent connection while dropping kinds the tournament layer
// renders itself.
//
// Closing a Filter detaches it without closing the inner endpoint, so
// an aborted tournament match does not sever the player's connection
// to the rest of the tournament.
type Filter struct {
	inner Endpoint
	allow map[Kind]bool

	done     chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
}

// NewFilter creates a relay around inner that forwards only the given
// kinds. The filter's Done channel closes when either the inner
// endpoint disconnects or the filter itself is closed.
func NewFilter(inner Endpoint, kinds ...Kind) *Filter {
	allow := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		allow[k] = true
	}
	f := &Filter{
		inner: inner,
		allow: allow,
		done:  make(chan struct{}),
	}
	go func() {
		select {
		case <-inner.Done():
			f.Close()
		case <-f.done:
		}
	}()
	return f
}

// ID returns the inner participant's identity.
func (f *Filter) ID() string {
	return f.inner.ID()
}

// Send forwards the event when its kind is allowed.
func (f *Filter) Send(evt Event) {
	select {
	case <-f.done:
		return
	default:
	}
	if f.allow[KindOf(evt)] {
		f.inner.Send(evt)
	}
}

// OnInput registers the handler on the inner endpoint. The handler is
// detached when the filter closes so a finished embedded match cannot
// keep consuming the connection's input.
func (f *Filter) OnInput(fn InputFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wrapped := func(v float64) {
		select {
		case <-f.done:
			return
		default:
		}
		fn(v)
	}
	f.inner.OnInput(wrapped)
}

// Done returns the filter's lifecycle channel.
func (f *Filter) Done() <-chan struct{} {
	return f.done
}

// Close detaches the filter. The inner endpoint stays open.
func (f *Filter) Close() {
	f.doneOnce.Do(func() {
		close(f.done)
	})
}

var _ Endpoint = (*Filter)(nil)
