package bridge

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sievenpiper/windmillctl/internal/dmx"
	"github.com/sievenpiper/windmillctl/internal/sacn"
	"github.com/sievenpiper/windmillctl/internal/testutil/testlog"
)

type fakeRegistration struct {
	universe uint16
	dir      sacn.Direction
	done     func(error)
}

type fakeClient struct {
	setupErr      error
	setupCalls    int
	handler       sacn.FrameHandler
	registrations []fakeRegistration
	runCalls      int
}

func (c *fakeClient) Setup() error {
	c.setupCalls++
	return c.setupErr
}

func (c *fakeClient) SetFrameCallback(fn sacn.FrameHandler) {
	c.handler = fn
}

func (c *fakeClient) RegisterUniverse(universe uint16, dir sacn.Direction, done func(error)) {
	c.registrations = append(c.registrations, fakeRegistration{universe: universe, dir: dir, done: done})
}

func (c *fakeClient) Run() error {
	c.runCalls++
	return nil
}

type receivedFrame struct {
	meta  dmx.Metadata
	slots []byte
}

type fakeSink struct {
	universe uint16
	frames   []receivedFrame
}

func (s *fakeSink) Universe() uint16 {
	return s.universe
}

func (s *fakeSink) OnFrame(meta dmx.Metadata, frame *dmx.Buffer) {
	s.frames = append(s.frames, receivedFrame{meta: meta, slots: frame.Bytes()})
}

func TestSetupFailureLeavesAdapterNonOperational(t *testing.T) {
	testlog.Start(t)
	client := &fakeClient{setupErr: errors.New("daemon unreachable")}
	sink := &fakeSink{universe: 1}

	a := NewWithClient(client, sink)
	if a.Setup() {
		t.Fatalf("Setup should fail when the client cannot initialize")
	}
	if a.Ready() {
		t.Fatalf("adapter must not report ready after failed Setup")
	}
	if client.handler != nil {
		t.Fatalf("no frame callback should be wired after failed Setup")
	}
	if len(client.registrations) != 0 {
		t.Fatalf("no registration should be issued after failed Setup, got %d", len(client.registrations))
	}
	if len(sink.frames) != 0 {
		t.Fatalf("sink must never see frames after failed Setup")
	}
}

func TestSetupRegistersSinkUniverseExactlyOnce(t *testing.T) {
	testlog.Start(t)
	client := &fakeClient{}
	sink := &fakeSink{universe: 7}

	a := NewWithClient(client, sink)
	if !a.Setup() {
		t.Fatalf("Setup failed: %+v", client)
	}
	if len(client.registrations) != 1 {
		t.Fatalf("registrations: got=%d want=1", len(client.registrations))
	}
	reg := client.registrations[0]
	if reg.universe != 7 {
		t.Fatalf("registered universe: got=%d want=7", reg.universe)
	}
	if reg.dir != sacn.Receive {
		t.Fatalf("registration direction: got=%v want=Receive", reg.dir)
	}

	// A later change to the sink's universe must not affect the completed
	// setup: the id was read exactly once.
	sink.universe = 9
	if client.registrations[0].universe != 7 {
		t.Fatalf("registration mutated after sink change")
	}
}

func TestForwardingIsVerbatimOrderedAndUnbatched(t *testing.T) {
	testlog.Start(t)
	client := &fakeClient{}
	sink := &fakeSink{universe: 1}

	a := NewWithClient(client, sink)
	if !a.Setup() {
		t.Fatalf("Setup failed")
	}
	if client.handler == nil {
		t.Fatalf("Setup did not wire the frame callback")
	}

	first := append([]byte{255, 0, 0}, make([]byte, 509)...)
	second := append([]byte{0, 255, 0}, make([]byte, 509)...)
	client.handler(dmx.Metadata{Universe: 1, Sequence: 1}, dmx.NewBuffer(first))
	client.handler(dmx.Metadata{Universe: 1, Sequence: 2}, dmx.NewBuffer(second))

	if len(sink.frames) != 2 {
		t.Fatalf("forwarded frames: got=%d want=2", len(sink.frames))
	}
	if sink.frames[0].meta.Sequence != 1 || sink.frames[1].meta.Sequence != 2 {
		t.Fatalf("frames reordered: %+v", sink.frames)
	}
	if !bytes.Equal(sink.frames[0].slots, first) || !bytes.Equal(sink.frames[1].slots, second) {
		t.Fatalf("frame contents modified in transit")
	}
}

func TestRegistrationCompletionFailureIsFireAndForget(t *testing.T) {
	testlog.Start(t)
	client := &fakeClient{}
	sink := &fakeSink{universe: 5}

	a := NewWithClient(client, sink)
	if !a.Setup() {
		t.Fatalf("Setup failed")
	}

	client.registrations[0].done(errors.New("no such universe"))

	if !a.Ready() {
		t.Fatalf("registration failure must not change adapter state")
	}
	client.handler(dmx.Metadata{Universe: 5}, dmx.NewBuffer([]byte{1}))
	if len(sink.frames) != 1 {
		t.Fatalf("forwarding should survive a failed registration completion")
	}
}

type panickySink struct {
	universe uint16
}

func (s *panickySink) Universe() uint16 {
	return s.universe
}

func (s *panickySink) OnFrame(meta dmx.Metadata, frame *dmx.Buffer) {
	panic("sink failure")
}

func TestForwardingDoesNotRecoverSinkPanics(t *testing.T) {
	testlog.Start(t)
	client := &fakeClient{}

	a := NewWithClient(client, &panickySink{universe: 3})
	if !a.Setup() {
		t.Fatalf("Setup failed")
	}

	// The adapter is pure glue: a sink panic must reach the receive loop
	// undisturbed, not be swallowed by the forwarding path.
	recovered := func() (p any) {
		defer func() { p = recover() }()
		client.handler(dmx.Metadata{Universe: 3}, dmx.NewBuffer([]byte{1}))
		return nil
	}()
	if recovered == nil {
		t.Fatalf("sink panic did not escape the forwarding path")
	}
	if recovered != "sink failure" {
		t.Fatalf("panic value altered in transit: %v", recovered)
	}
}

func TestRunDrivesClientLoop(t *testing.T) {
	testlog.Start(t)
	client := &fakeClient{}
	a := NewWithClient(client, &fakeSink{universe: 1})
	if !a.Setup() {
		t.Fatalf("Setup failed")
	}
	a.Run()
	if client.runCalls != 1 {
		t.Fatalf("client run calls: got=%d want=1", client.runCalls)
	}
}
