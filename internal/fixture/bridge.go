package fixture

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sievenpiper/windmillctl/internal/dmx"
	"github.com/sievenpiper/windmillctl/internal/observability"
)

// Bridge is the frame sink handed to the DMX adapter. It maps each received
// frame to a desired windmill state and publishes it with latest-wins
// semantics: the reconcile loop only ever cares about the newest target, so
// an unread older target is replaced, never queued behind.
type Bridge struct {
	mapping Mapping
	updates chan State

	mu        sync.Mutex
	lastMeta  dmx.Metadata
	lastAt    time.Time
	haveFrame bool
}

func NewBridge(mapping Mapping) *Bridge {
	return &Bridge{
		mapping: mapping,
		updates: make(chan State, 1),
	}
}

// Universe reports the universe this bridge is patched into.
func (b *Bridge) Universe() uint16 {
	return b.mapping.Universe
}

// OnFrame runs on the receive loop; it must stay cheap. Only one universe is
// registered, so anything else showing up here is flagged and dropped.
func (b *Bridge) OnFrame(meta dmx.Metadata, frame *dmx.Buffer) {
	if meta.Universe != b.mapping.Universe {
		observability.RecordFrameDiscarded(meta.Universe, "wrong_universe")
		log.Warn().
			Uint16("universe", meta.Universe).
			Uint16("patched", b.mapping.Universe).
			Msg("received frame for universe we are not listening on")
		return
	}

	desired := b.mapping.Desired(frame)

	b.mu.Lock()
	b.lastMeta = meta
	b.lastAt = time.Now()
	b.haveFrame = true
	b.mu.Unlock()

	observability.RecordFrameForwarded(meta.Universe)
	b.publish(desired)
}

// publish replaces any unread desired state with the newest one.
func (b *Bridge) publish(desired State) {
	for {
		select {
		case b.updates <- desired:
			return
		default:
			select {
			case <-b.updates:
			default:
			}
		}
	}
}

// Updates is the stream of desired states for the reconcile loop.
func (b *Bridge) Updates() <-chan State {
	return b.updates
}

// LastFrame reports metadata of the most recent accepted frame and when it
// arrived.
func (b *Bridge) LastFrame() (dmx.Metadata, time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastMeta, b.lastAt, b.haveFrame
}
