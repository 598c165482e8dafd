package sacn

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/ipv4"

	"github.com/sievenpiper/windmillctl/internal/dmx"
	"github.com/sievenpiper/windmillctl/internal/observability"
)

var (
	ErrNotSetup       = errors.New("sacn: client not set up")
	ErrNoSuchIface    = errors.New("sacn: multicast interface not found")
	ErrClientStopped  = errors.New("sacn: client stopped")
	ErrBadRegistering = errors.New("sacn: invalid universe registration")
)

// FrameHandler receives one decoded frame per data packet, invoked
// synchronously from the receive loop.
type FrameHandler func(meta dmx.Metadata, frame *dmx.Buffer)

// Direction says whether a universe registration wants to receive frames or
// only announce intent to send.
type Direction int

const (
	Receive Direction = iota
	Send
)

// Config shapes one receiver client.
type Config struct {
	// ListenAddr is the UDP bind address. Defaults to ":5568".
	ListenAddr string
	// Interface optionally names the NIC used for multicast group joins.
	Interface string
	// Multicast controls whether receive registrations join the universe's
	// E1.31 multicast group. Disable for unicast-only operation.
	Multicast bool
	// ReadTimeout bounds each blocking read so the loop can notice Stop and
	// pending registrations. Defaults to 250ms.
	ReadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:  fmt.Sprintf(":%d", Port),
		Multicast:   true,
		ReadTimeout: 250 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%d", Port)
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 250 * time.Millisecond
	}
	return c
}

type registration struct {
	universe uint16
	dir      Direction
	done     func(error)
}

// Client is a single-loop E1.31 receiver. Registrations are queued and
// performed by the run loop; frame dispatch is synchronous on the loop
// goroutine, so a registered FrameHandler must not block.
type Client struct {
	cfg   Config
	iface *net.Interface

	conn  *net.UDPConn
	pconn *ipv4.PacketConn

	mu         sync.Mutex
	handler    FrameHandler
	pending    []registration
	subscribed map[uint16]bool
	lastSeq    map[uint16]uint8
	seqSeen    map[uint16]bool

	closed    chan struct{}
	closeOnce sync.Once
}

// NewClient builds an unconnected client. No I/O happens until Setup.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg.withDefaults(),
		subscribed: make(map[uint16]bool),
		lastSeq:    make(map[uint16]uint8),
		seqSeen:    make(map[uint16]bool),
		closed:     make(chan struct{}),
	}
}

// Setup binds the receive socket. It fails when the transport is unavailable
// (address in use, no such interface) and the client stays unusable.
func (c *Client) Setup() error {
	if c.cfg.Interface != "" {
		iface, err := net.InterfaceByName(c.cfg.Interface)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrNoSuchIface, c.cfg.Interface)
		}
		c.iface = iface
	}

	pc, err := net.ListenPacket("udp4", c.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("sacn: listen %s: %w", c.cfg.ListenAddr, err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return fmt.Errorf("sacn: listen %s: unexpected conn type", c.cfg.ListenAddr)
	}
	c.mu.Lock()
	c.conn = conn
	if c.cfg.Multicast {
		c.pconn = ipv4.NewPacketConn(conn)
	}
	c.mu.Unlock()
	return nil
}

// SetFrameCallback installs the frame handler. At most one handler is live;
// a later call replaces the earlier one.
func (c *Client) SetFrameCallback(fn FrameHandler) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

// RegisterUniverse queues an asynchronous registration. The run loop performs
// it (including the multicast group join for receive registrations) and then
// invokes done with the outcome. done may be nil.
func (c *Client) RegisterUniverse(universe uint16, dir Direction, done func(error)) {
	c.mu.Lock()
	c.pending = append(c.pending, registration{universe: universe, dir: dir, done: done})
	c.mu.Unlock()
}

// LocalAddr reports the bound socket address, or nil before Setup.
func (c *Client) LocalAddr() net.Addr {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.LocalAddr()
}

// Stop makes Run return. Safe to call more than once and from any goroutine.
func (c *Client) Stop() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
	})
}

// Run drives the receive loop on the calling goroutine until Stop. Each
// iteration first settles queued registrations, then reads one datagram.
func (c *Client) Run() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotSetup
	}

	buf := make([]byte, MaxPacketLen+64)
	for {
		c.settleRegistrations()

		select {
		case <-c.closed:
			return nil
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("sacn: set read deadline: %w", err)
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("sacn: read: %w", err)
		}

		c.dispatch(buf[:n])
	}
}

func (c *Client) settleRegistrations() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, reg := range pending {
		err := c.settle(reg)
		if err != nil {
			log.Debug().Uint16("universe", reg.universe).Err(err).Msg("universe registration failed")
		}
		if reg.done != nil {
			reg.done(err)
		}
	}
}

func (c *Client) settle(reg registration) error {
	if reg.universe == 0 || reg.universe > MaxUniverse {
		return fmt.Errorf("%w: universe %d", ErrBadRegistering, reg.universe)
	}
	if reg.dir != Receive {
		return nil
	}
	if c.cfg.Multicast {
		group := &net.UDPAddr{IP: UniverseGroup(reg.universe), Port: Port}
		if err := c.pconn.JoinGroup(c.iface, group); err != nil {
			return fmt.Errorf("sacn: join group %s: %w", group.IP, err)
		}
	}
	c.mu.Lock()
	c.subscribed[reg.universe] = true
	c.mu.Unlock()
	return nil
}

func (c *Client) dispatch(datagram []byte) {
	p, err := DecodePacket(datagram)
	if err != nil {
		observability.RecordDMXDecodeError()
		log.Debug().Err(err).Int("bytes", len(datagram)).Msg("dmx packet discarded")
		return
	}

	c.mu.Lock()
	subscribed := c.subscribed[p.Universe]
	handler := c.handler
	stale := false
	if subscribed {
		if p.Terminated() {
			delete(c.seqSeen, p.Universe)
			delete(c.lastSeq, p.Universe)
		} else if c.seqSeen[p.Universe] {
			// E1.31 sequence window: discard packets up to 20 behind.
			diff := int8(p.Sequence - c.lastSeq[p.Universe])
			if diff <= 0 && diff > -20 {
				stale = true
			}
		}
		if !stale && !p.Terminated() {
			c.lastSeq[p.Universe] = p.Sequence
			c.seqSeen[p.Universe] = true
		}
	}
	c.mu.Unlock()

	if !subscribed || stale || p.Terminated() || p.Preview() || p.StartCode != 0 {
		return
	}

	observability.RecordDMXPacket(p.Universe)
	if handler != nil {
		handler(p.Metadata(), dmx.NewBuffer(p.Slots))
	}
}
