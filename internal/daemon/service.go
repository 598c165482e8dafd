// Package daemon assembles the windmill controller: sACN receiver, DMX
// adapter, fixture reconcile loop, and the admin HTTP surface.
package daemon

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/sievenpiper/windmillctl/internal/admin"
	"github.com/sievenpiper/windmillctl/internal/bridge"
	"github.com/sievenpiper/windmillctl/internal/config"
	"github.com/sievenpiper/windmillctl/internal/fixture"
	"github.com/sievenpiper/windmillctl/internal/observability"
	"github.com/sievenpiper/windmillctl/internal/sacn"
)

var (
	ErrSetupFailed       = errors.New("daemon: dmx adapter setup failed")
	ErrReceiveLoopExited = errors.New("daemon: dmx receive loop exited unexpectedly")
)

// Client is the receiver the daemon drives. *sacn.Client satisfies it; tests
// may substitute their own.
type Client interface {
	bridge.Client
	Stop()
}

// Hardware is the physical boundary: the motor's speed input and the relay
// bank. The caller opens these so the daemon never touches sysfs itself.
type Hardware struct {
	Motor  fixture.Motor
	Relays fixture.Relays
}

type Service struct {
	cfg    config.DaemonConfig
	hw     Hardware
	client Client

	adapter *bridge.Adapter
	bridge  *fixture.Bridge
	runner  *fixture.Runner
}

func NewService(cfg config.DaemonConfig, hw Hardware) *Service {
	return NewServiceWithClient(cfg, hw, sacn.NewClient(cfg.ClientConfig()))
}

func NewServiceWithClient(cfg config.DaemonConfig, hw Hardware, client Client) *Service {
	return &Service{
		cfg:    cfg,
		hw:     hw,
		client: client,
	}
}

// Run blocks until process signal shutdown or the first component failure.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve wires the components and drives them until ctx is canceled. On any
// exit the reconcile loop panic-stops the hardware before Serve returns.
func (s *Service) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	observability.RegisterMetrics()

	s.bridge = fixture.NewBridge(s.cfg.Mapping())
	s.adapter = bridge.NewWithClient(s.client, s.bridge)
	s.runner = fixture.NewRunner(s.hw.Motor, s.hw.Relays, s.bridge.Updates())

	if !s.adapter.Setup() {
		return ErrSetupFailed
	}
	log.Info().
		Uint16("universe", s.cfg.Fixture.Universe).
		Str("listen", s.cfg.DMX.ListenAddr).
		Msg("dmx adapter ready")

	adminServer := admin.New(admin.Config{
		Addr:        s.cfg.Admin.Addr,
		CorsOrigins: s.cfg.Admin.CorsOrigins,
		Ready:       s.adapter.Ready,
		Status:      s.runner,
		Frames:      s.bridge,
	})

	// The receive loop only notices shutdown through the client.
	go func() {
		<-ctx.Done()
		s.client.Stop()
	}()

	errc := make(chan error, 3)
	go func() {
		s.adapter.Run()
		// The adapter's run loop returns void and only logs the client
		// error. A return before shutdown began means the transport died.
		if ctx.Err() == nil {
			errc <- ErrReceiveLoopExited
			return
		}
		errc <- nil
	}()
	go func() {
		errc <- s.runner.Run(ctx)
	}()
	go func() {
		errc <- adminServer.Serve(ctx)
	}()

	var first error
	for i := 0; i < cap(errc); i++ {
		if err := <-errc; err != nil && first == nil {
			first = err
			log.Error().Err(err).Msg("daemon component failed")
		}
		cancel()
	}
	return first
}

// Runner exposes the reconcile loop for status inspection. Nil before Serve.
func (s *Service) Runner() *fixture.Runner {
	return s.runner
}
