package agentsdk

import "sync"

// Sink receives auth state changes. Delivery is best effort and synchronous;
// a sink that needs to block should hand off internally.
type Sink interface {
	AuthStateChanged(state AuthState)
}

// Broadcaster fans state changes out to the extension surfaces that care
// (popup, content scripts, badge).
type Broadcaster struct {
	mu    sync.Mutex
	sinks []Sink
}

func (b *Broadcaster) Subscribe(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

func (b *Broadcaster) publish(state AuthState) {
	b.mu.Lock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.Unlock()

	for _, sink := range sinks {
		sink.AuthStateChanged(state)
	}
}

// ChannelSink forwards state changes into a buffered channel, dropping when
// the consumer lags.
type ChannelSink struct {
	C chan AuthState
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{C: make(chan AuthState, buffer)}
}

func (s *ChannelSink) AuthStateChanged(state AuthState) {
	select {
	case s.C <- state:
	default:
	}
}
