// Package bridge binds the sACN receiver client to whatever the host wants
// fed with DMX frames. The adapter is glue: one callback registration, one
// universe registration, one pass-through forwarding path. Everything hard
// (transport, framing, sequencing) stays inside the client.
package bridge

import (
	"github.com/rs/zerolog/log"

	"github.com/sievenpiper/windmillctl/internal/dmx"
	"github.com/sievenpiper/windmillctl/internal/observability"
	"github.com/sievenpiper/windmillctl/internal/sacn"
)

// Sink is the capability the host supplies at construction. Universe is read
// once during Setup; OnFrame runs synchronously on the receive loop and must
// not block for unbounded time.
type Sink interface {
	Universe() uint16
	OnFrame(meta dmx.Metadata, frame *dmx.Buffer)
}

// Client is the receiver surface the adapter drives. *sacn.Client satisfies
// it; tests supply fakes.
type Client interface {
	Setup() error
	SetFrameCallback(fn sacn.FrameHandler)
	RegisterUniverse(universe uint16, dir sacn.Direction, done func(error))
	Run() error
}

// Adapter owns one client and one sink for its whole lifetime. A sink is
// bound exactly once, at construction.
type Adapter struct {
	client Client
	sink   Sink
	ready  bool
}

// New binds a sink to a default-configured sACN client. No I/O happens here.
func New(sink Sink) *Adapter {
	return NewWithClient(sacn.NewClient(sacn.DefaultConfig()), sink)
}

// NewWithClient binds a sink to an explicit client.
func NewWithClient(client Client, sink Sink) *Adapter {
	return &Adapter{client: client, sink: sink}
}

// Setup initializes the client, wires the frame callback, and issues the
// receive registration for the sink's universe. The registration is
// fire-and-forget: a later completion failure is logged, never returned.
// Returns false when the client could not initialize; the adapter is then
// non-operational and Run must not be called.
func (a *Adapter) Setup() bool {
	if err := a.client.Setup(); err != nil {
		log.Error().Err(err).Msg("dmx client setup failed")
		return false
	}

	a.client.SetFrameCallback(a.forward)

	universe := a.sink.Universe()
	a.client.RegisterUniverse(universe, sacn.Receive, func(err error) {
		if err != nil {
			observability.RecordRegistrationFailure()
			log.Error().Uint16("universe", universe).Err(err).Msg("failed to register universe")
		}
	})

	a.ready = true
	return true
}

// Ready reports whether Setup has succeeded.
func (a *Adapter) Ready() bool {
	return a.ready
}

// Run blocks the calling goroutine on the client's receive loop until the
// loop is stopped from outside. Only valid after a successful Setup.
func (a *Adapter) Run() {
	if err := a.client.Run(); err != nil {
		log.Error().Err(err).Msg("dmx receive loop exited")
	}
}

// forward hands one frame to the sink verbatim. No buffering, no filtering,
// no recovery: a panicking sink propagates to the receive loop.
func (a *Adapter) forward(meta dmx.Metadata, frame *dmx.Buffer) {
	a.sink.OnFrame(meta, frame)
}
