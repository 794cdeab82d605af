// Package server implements the per-client connection state machine and
// the protocol dispatcher that sits on top of it.
package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/waylens/waylens/internal/constants"
	"github.com/waylens/waylens/internal/interfaces"
	"github.com/waylens/waylens/internal/registry"
	"github.com/waylens/waylens/internal/wire"
)

// State is a client connection's position in the Handshaking -> Active
// -> Draining -> Dead lifecycle.
type State int32

const (
	StateHandshaking State = iota
	StateActive
	StateDraining
	StateDead
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Credentials are the peer credentials captured at accept time (SO_PEERCRED
// on Linux), used for sandbox detection and capability gating.
type Credentials struct {
	UID int
	PID int
	Exe string
}

// Client is one connected Wayland client: its wire buffers, its object
// registry, and the bookkeeping the connection state machine and
// dispatcher need. Exactly one goroutine ever dispatches for a given
// Client at a time, even though its read/write loops run on separate
// goroutines — matching the teacher's per-tag state machine discipline
// in internal/queue/runner.go, where a per-tag mutex rules out a second
// in-flight submission for the same tag.
type Client struct {
	id    uint64
	conn  *net.UnixConn
	creds Credentials

	registry *registry.Registry
	input    *wire.InputRing
	output   *wire.OutputSwapchain

	capabilities map[string]struct{}
	sandboxed    bool
	xwayland     bool

	state   atomic.Int32
	slowAt  atomic.Int64 // unix nanos when the outbound watermark was first exceeded, 0 if not slow
	logger  interfaces.Logger
	metrics interfaces.MetricsRecorder
	clock   interfaces.Clock

	mu          sync.Mutex // guards activation state below
	activated   bool
	activationToken string
}

// Config bundles a new connection's dependencies.
type Config struct {
	ID           uint64
	Conn         *net.UnixConn
	Creds        Credentials
	Capabilities map[string]struct{}
	Logger       interfaces.Logger
	Metrics      interfaces.MetricsRecorder
	Clock        interfaces.Clock
}

// NewClient constructs a connection in the Handshaking state.
func NewClient(cfg Config) *Client {
	caps := cfg.Capabilities
	if caps == nil {
		caps = make(map[string]struct{})
	}
	clock := cfg.Clock
	if clock == nil {
		clock = interfaces.SystemClock{}
	}
	c := &Client{
		id:           cfg.ID,
		conn:         cfg.Conn,
		creds:        cfg.Creds,
		registry:     registry.New(),
		input:        wire.NewInputRing(constants.DefaultInputBufferSize, constants.DefaultInputMaxFds),
		output:       wire.NewOutputSwapchain(constants.DefaultOutboundWatermark),
		capabilities: caps,
		sandboxed:    isSandboxed(cfg.Creds),
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		clock:        clock,
	}
	c.state.Store(int32(StateHandshaking))
	return c
}

// ID returns the connection's opaque client id.
func (c *Client) ID() uint64 { return c.id }

// State returns the connection's current lifecycle state.
func (c *Client) State() State { return State(c.state.Load()) }

// Registry returns the client's owned-object table.
func (c *Client) Registry() *registry.Registry { return c.registry }

// Sandboxed reports whether isSandboxed classified this client as
// sandboxed from its peer credentials alone. No namespace inspection is
// done, and the dispatcher offers a sandboxed client the same globals as
// any other.
func (c *Client) Sandboxed() bool { return c.sandboxed }

// HasCapability reports whether the client's negotiated capability set
// includes cap, used by the dispatcher's bind-time capability gating.
func (c *Client) HasCapability(cap string) bool {
	_, ok := c.capabilities[cap]
	return ok
}

// Activate marks the client as having completed first-commit
// activation with the given xdg-activation token, idempotently.
func (c *Client) Activate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activated = true
	c.activationToken = token
}

// Quiescent reports whether the client has no pending outbound events
// and no incoming message currently parked awaiting dispatch -- the
// condition under which a Draining client may transition to Dead.
func (c *Client) Quiescent() bool {
	return c.output.Backlog() == 0 && c.input.Len() < constants.MessageHeaderSize
}

// markSlowIfNeeded records when the outbound backlog first reached the
// watermark; a later call while still at or over it is a no-op so the
// grace period is measured from the first breach, and a call once the
// backlog is back under the watermark clears the record.
func (c *Client) markSlowIfNeeded() {
	if c.output.Backlog() < constants.DefaultOutboundWatermark {
		c.slowAt.Store(0)
		return
	}
	c.slowAt.CompareAndSwap(0, c.clock.Now().UnixNano())
}

// SlowDeadline reports whether the client has been over the outbound
// watermark for longer than the grace period, past which the
// connection is torn down rather than left to buffer indefinitely --
// the server never blocks on a client, but it will not buffer for it
// forever either.
func (c *Client) SlowDeadline() bool {
	at := c.slowAt.Load()
	if at == 0 {
		return false
	}
	return c.clock.Now().Sub(time.Unix(0, at)) > constants.SlowClientGracePeriod
}

// Conn runs a client connection to completion: a read loop that fills
// the input ring and feeds complete messages to dispatch, and a write
// loop that drains the output swapchain to the socket, supervised by an
// errgroup so either goroutine failing tears down both -- generalized
// from the teacher's single ioLoop to two loops only because the wire
// protocol is full-duplex, not request/response.
type Conn struct {
	client     *Client
	dispatcher *Dispatcher
}

// NewConn pairs a client with the dispatcher that will handle its
// incoming requests.
func NewConn(client *Client, dispatcher *Dispatcher) *Conn {
	return &Conn{client: client, dispatcher: dispatcher}
}

// Run drives the connection until ctx is cancelled, the peer closes, or
// a protocol violation occurs. It never returns while the connection is
// in StateActive except on error or cancellation.
func (cn *Conn) Run(ctx context.Context) error {
	cn.client.state.Store(int32(StateActive))
	defer cn.client.state.Store(int32(StateDead))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cn.readLoop(ctx) })
	g.Go(func() error { return cn.writeLoop(ctx) })

	err := g.Wait()
	cn.client.state.Store(int32(StateDraining))
	cn.drain()
	cn.client.state.Store(int32(StateDead))
	return err
}

// drain gives a Draining connection one last chance to flush its
// outbound queue before being declared Dead.
func (cn *Conn) drain() {
	for i := 0; i < 3 && !cn.client.Quiescent(); i++ {
		if buf := cn.client.output.Swap(); len(buf) > 0 {
			_ = wire.WriteToUnix(cn.client.conn, buf, nil)
		}
	}
}

func (cn *Conn) readLoop(ctx context.Context) error {
	buf := make([]byte, constants.DefaultInputBufferSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, fds, err := wire.ReadFromUnix(cn.client.conn, buf)
		if err != nil {
			return err
		}
		if err := cn.client.input.Fill(data, fds); err != nil {
			return err
		}

		for {
			hdr, ok := cn.client.input.PeekHeader()
			if !ok {
				break
			}
			if err := wire.ValidateHeader(hdr); err != nil {
				cn.dispatcher.sendProtocolError(cn.client, hdr.ObjectID, err)
				return err
			}
			nFds := cn.dispatcher.fdCount(cn.client, hdr)
			msg, ok := cn.client.input.TakeMessage(hdr.Size, nFds)
			if !ok {
				break // full message not yet buffered; suspend until more data arrives
			}
			if err := cn.dispatcher.Dispatch(cn.client, msg); err != nil {
				return err
			}
		}
	}
}

func (cn *Conn) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(constants.DefaultRefreshPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cn.client.markSlowIfNeeded()
			if cn.client.SlowDeadline() {
				return wire.ErrRingFull
			}
			if buf := cn.client.output.Swap(); len(buf) > 0 {
				if err := wire.WriteToUnix(cn.client.conn, buf, nil); err != nil {
					return err
				}
			}
		}
	}
}

// isSandboxed applies a conservative heuristic: credentials with no
// resolvable executable path are treated as sandboxed, matching the
// narrow check a compositor can make without a full namespace
// inspection (left unimplemented; see DESIGN.md).
func isSandboxed(creds Credentials) bool {
	return creds.Exe == ""
}
