package sacn

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/sievenpiper/windmillctl/internal/dmx"
)

// E1.31 data packets are three nested PDUs: ACN root layer, E1.31 framing
// layer, DMP layer. Offsets below are fixed by the standard.
const (
	Port = 5568

	rootLayerOffset    = 0
	framingLayerOffset = 38
	dmpLayerOffset     = 115
	slotDataOffset     = 126

	// MinPacketLen is a data packet carrying zero slots after the start code.
	MinPacketLen = slotDataOffset
	// MaxPacketLen carries a full universe of 512 slots.
	MaxPacketLen = slotDataOffset + dmx.UniverseSize

	// MaxUniverse is the highest routable E1.31 universe number.
	MaxUniverse uint16 = 63999

	DefaultPriority uint8 = 100
	maxPriority     uint8 = 200

	rootVectorData       uint32 = 0x00000004
	framingVectorData    uint32 = 0x00000002
	dmpVectorSetProperty uint8  = 0x02
	dmpAddressDataType   uint8  = 0xa1

	optionPreview    uint8 = 0x80
	optionTerminated uint8 = 0x40

	sourceNameLen = 64
)

var acnIdentifier = [12]byte{'A', 'S', 'C', '-', 'E', '1', '.', '1', '7', 0, 0, 0}

var (
	ErrPacketTooShort   = errors.New("sacn: packet shorter than data packet minimum")
	ErrBadPreamble      = errors.New("sacn: bad root layer preamble")
	ErrBadIdentifier    = errors.New("sacn: bad ACN packet identifier")
	ErrBadRootVector    = errors.New("sacn: root vector is not E1.31 data")
	ErrBadFramingVector = errors.New("sacn: framing vector is not a data packet")
	ErrBadDMPLayer      = errors.New("sacn: malformed DMP layer")
	ErrBadPropertyCount = errors.New("sacn: property count disagrees with packet length")
	ErrBadUniverse      = errors.New("sacn: universe out of range")
	ErrBadPriority      = errors.New("sacn: priority out of range")
	ErrTooManySlots     = errors.New("sacn: more than 512 slots")
)

// Packet is one decoded E1.31 data packet.
type Packet struct {
	CID         [16]byte
	SourceName  string
	Priority    uint8
	SyncAddress uint16
	Sequence    uint8
	Options     uint8
	Universe    uint16
	StartCode   uint8
	Slots       []byte
}

// Preview reports the preview-data option bit.
func (p Packet) Preview() bool {
	return p.Options&optionPreview != 0
}

// Terminated reports the stream-terminated option bit.
func (p Packet) Terminated() bool {
	return p.Options&optionTerminated != 0
}

// Metadata projects the framing facts a frame consumer cares about.
func (p Packet) Metadata() dmx.Metadata {
	return dmx.Metadata{
		Universe: p.Universe,
		Priority: p.Priority,
		Sequence: p.Sequence,
		Source:   p.SourceName,
	}
}

// EncodePacket serializes one data packet for the wire.
func EncodePacket(p Packet) ([]byte, error) {
	if p.Universe == 0 || p.Universe > MaxUniverse {
		return nil, fmt.Errorf("%w: %d", ErrBadUniverse, p.Universe)
	}
	if p.Priority > maxPriority {
		return nil, fmt.Errorf("%w: %d", ErrBadPriority, p.Priority)
	}
	if len(p.Slots) > dmx.UniverseSize {
		return nil, fmt.Errorf("%w: %d", ErrTooManySlots, len(p.Slots))
	}

	total := slotDataOffset + len(p.Slots)
	buf := make([]byte, total)

	// Root layer.
	binary.BigEndian.PutUint16(buf[0:2], 0x0010)
	binary.BigEndian.PutUint16(buf[2:4], 0x0000)
	copy(buf[4:16], acnIdentifier[:])
	putFlagsLength(buf[16:18], total-16)
	binary.BigEndian.PutUint32(buf[18:22], rootVectorData)
	copy(buf[22:38], p.CID[:])

	// Framing layer.
	putFlagsLength(buf[38:40], total-framingLayerOffset)
	binary.BigEndian.PutUint32(buf[40:44], framingVectorData)
	copy(buf[44:44+sourceNameLen], []byte(p.SourceName))
	buf[108] = p.Priority
	binary.BigEndian.PutUint16(buf[109:111], p.SyncAddress)
	buf[111] = p.Sequence
	buf[112] = p.Options
	binary.BigEndian.PutUint16(buf[113:115], p.Universe)

	// DMP layer.
	putFlagsLength(buf[115:117], total-dmpLayerOffset)
	buf[117] = dmpVectorSetProperty
	buf[118] = dmpAddressDataType
	binary.BigEndian.PutUint16(buf[119:121], 0x0000)
	binary.BigEndian.PutUint16(buf[121:123], 0x0001)
	binary.BigEndian.PutUint16(buf[123:125], uint16(1+len(p.Slots)))
	buf[125] = p.StartCode
	copy(buf[slotDataOffset:], p.Slots)

	return buf, nil
}

// DecodePacket parses one datagram as an E1.31 data packet. Errors are
// deterministic sentinels so receive loops can classify discards.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < MinPacketLen {
		return Packet{}, ErrPacketTooShort
	}
	if binary.BigEndian.Uint16(data[0:2]) != 0x0010 || binary.BigEndian.Uint16(data[2:4]) != 0x0000 {
		return Packet{}, ErrBadPreamble
	}
	if !bytes.Equal(data[4:16], acnIdentifier[:]) {
		return Packet{}, ErrBadIdentifier
	}
	if binary.BigEndian.Uint32(data[18:22]) != rootVectorData {
		return Packet{}, ErrBadRootVector
	}
	if binary.BigEndian.Uint32(data[40:44]) != framingVectorData {
		return Packet{}, ErrBadFramingVector
	}
	if data[117] != dmpVectorSetProperty || data[118] != dmpAddressDataType {
		return Packet{}, ErrBadDMPLayer
	}
	if binary.BigEndian.Uint16(data[119:121]) != 0x0000 || binary.BigEndian.Uint16(data[121:123]) != 0x0001 {
		return Packet{}, ErrBadDMPLayer
	}

	propertyCount := int(binary.BigEndian.Uint16(data[123:125]))
	if propertyCount < 1 || propertyCount-1 > dmx.UniverseSize {
		return Packet{}, ErrBadPropertyCount
	}
	slotCount := propertyCount - 1
	if len(data) < slotDataOffset+slotCount {
		return Packet{}, ErrBadPropertyCount
	}

	universe := binary.BigEndian.Uint16(data[113:115])
	if universe == 0 || universe > MaxUniverse {
		return Packet{}, fmt.Errorf("%w: %d", ErrBadUniverse, universe)
	}

	var p Packet
	copy(p.CID[:], data[22:38])
	p.SourceName = trimSourceName(data[44 : 44+sourceNameLen])
	p.Priority = data[108]
	p.SyncAddress = binary.BigEndian.Uint16(data[109:111])
	p.Sequence = data[111]
	p.Options = data[112]
	p.Universe = universe
	p.StartCode = data[125]
	p.Slots = make([]byte, slotCount)
	copy(p.Slots, data[slotDataOffset:slotDataOffset+slotCount])

	return p, nil
}

// UniverseGroup returns the E1.31 multicast group for a universe
// (239.255.hi.lo).
func UniverseGroup(universe uint16) net.IP {
	return net.IPv4(239, 255, byte(universe>>8), byte(universe&0xff))
}

func putFlagsLength(dst []byte, length int) {
	binary.BigEndian.PutUint16(dst, 0x7000|uint16(length&0x0fff))
}

func trimSourceName(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}
