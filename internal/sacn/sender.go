package sacn

import (
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
)

// SenderConfig shapes one transmitting source.
type SenderConfig struct {
	// SourceName is the advertised source, truncated to 64 bytes on the wire.
	SourceName string
	// Target optionally unicasts every packet to one host:port. When empty,
	// packets go to the universe's multicast group.
	Target string
	// Priority applies to every packet. Zero means DefaultPriority.
	Priority uint8
}

// Sender transmits E1.31 data packets with a stable CID and per-universe
// sequence numbers.
type Sender struct {
	cfg  SenderConfig
	cid  [16]byte
	conn net.PacketConn

	mu  sync.Mutex
	seq map[uint16]uint8
}

func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.Priority == 0 {
		cfg.Priority = DefaultPriority
	}
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("sacn: sender socket: %w", err)
	}
	s := &Sender{
		cfg:  cfg,
		cid:  [16]byte(uuid.New()),
		conn: conn,
		seq:  make(map[uint16]uint8),
	}
	return s, nil
}

// Send transmits one frame for the universe, advancing its sequence number.
func (s *Sender) Send(universe uint16, slots []byte) error {
	return s.send(universe, slots, 0)
}

// Terminate announces end of stream for the universe.
func (s *Sender) Terminate(universe uint16) error {
	return s.send(universe, nil, optionTerminated)
}

func (s *Sender) send(universe uint16, slots []byte, options uint8) error {
	s.mu.Lock()
	seq := s.seq[universe]
	s.seq[universe] = seq + 1
	s.mu.Unlock()

	data, err := EncodePacket(Packet{
		CID:        s.cid,
		SourceName: s.cfg.SourceName,
		Priority:   s.cfg.Priority,
		Sequence:   seq,
		Options:    options,
		Universe:   universe,
		Slots:      slots,
	})
	if err != nil {
		return err
	}

	dest, err := s.destination(universe)
	if err != nil {
		return err
	}
	if _, err := s.conn.WriteTo(data, dest); err != nil {
		return fmt.Errorf("sacn: send universe %d: %w", universe, err)
	}
	return nil
}

func (s *Sender) destination(universe uint16) (net.Addr, error) {
	if s.cfg.Target != "" {
		addr, err := net.ResolveUDPAddr("udp4", s.cfg.Target)
		if err != nil {
			return nil, fmt.Errorf("sacn: resolve target %s: %w", s.cfg.Target, err)
		}
		return addr, nil
	}
	return &net.UDPAddr{IP: UniverseGroup(universe), Port: Port}, nil
}

func (s *Sender) Close() error {
	return s.conn.Close()
}
