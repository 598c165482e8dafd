package dmx

// UniverseSize is the slot capacity of one DMX universe.
const UniverseSize = 512

// Metadata describes where one received frame came from.
type Metadata struct {
	Universe uint16
	Priority uint8
	Sequence uint8
	Source   string
}

// Buffer holds the channel values of one DMX frame. A frame may carry fewer
// than 512 slots; reads past the carried length return zero, matching
// receiver behavior for unpatched channels.
type Buffer struct {
	slots [UniverseSize]byte
	n     int
}

// NewBuffer copies up to UniverseSize values into a fresh Buffer.
func NewBuffer(values []byte) *Buffer {
	var b Buffer
	if len(values) > UniverseSize {
		values = values[:UniverseSize]
	}
	b.n = copy(b.slots[:], values)
	return &b
}

// Get returns the value at the zero-based slot index, or zero when the index
// falls outside the carried slots.
func (b *Buffer) Get(index uint16) byte {
	if int(index) >= b.n {
		return 0
	}
	return b.slots[index]
}

// Set writes one slot value, growing the carried length to cover it.
func (b *Buffer) Set(index uint16, value byte) {
	if index >= UniverseSize {
		return
	}
	b.slots[index] = value
	if int(index) >= b.n {
		b.n = int(index) + 1
	}
}

// Len reports how many slots the frame carried.
func (b *Buffer) Len() int {
	return b.n
}

// Bytes returns a copy of the carried slot values.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, b.n)
	copy(out, b.slots[:b.n])
	return out
}
