// Package waylens is the compositor core: the object registry, wire
// codec, scene graph, seat/input router, frame scheduler, async
// runtime, and criteria engine are implemented in internal/ packages;
// this file wires them into one lifecycle, generalizing the teacher's
// CreateAndServe/StopAndDelete device lifecycle from "one block device"
// to "one compositor instance owning N outputs and M seats."
package waylens

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/waylens/waylens/internal/input"
	"github.com/waylens/waylens/internal/interfaces"
	"github.com/waylens/waylens/internal/logging"
	crruntime "github.com/waylens/waylens/internal/runtime"
	"github.com/waylens/waylens/internal/rules"
	"github.com/waylens/waylens/internal/scene"
	"github.com/waylens/waylens/internal/sched"
	"github.com/waylens/waylens/internal/server"
)

// State mirrors the teacher's DeviceState: a compositor's lifecycle has
// the same three phases, just scoped to a socket-accepting service
// instead of a block device.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "created"
	}
}

// OutputConfig describes one physical display to add at startup or
// via hot-plug.
type OutputConfig struct {
	Name          string
	Width, Height int
	RefreshPeriod time.Duration
	Tearing       sched.TearingMode
	VRR           sched.VRRMode
}

// Config bundles a Compositor's startup dependencies. A nil
// RenderBackend is an error at New time — callers needing a quick
// in-memory stand-in should pass backend/software.New().
type Config struct {
	RuntimeDir    string // $XDG_RUNTIME_DIR; the display socket is created here
	DisplayName   string // e.g. "wayland-0"; defaults to constants-free "wayland-0"
	RenderBackend interfaces.RenderBackend
	Logger        *logging.Logger
	IOEntries     uint32 // io_uring submission queue depth for the runtime adapter
}

// DefaultConfig returns a Config with every optional field filled in
// except RenderBackend, which the caller must always supply.
func DefaultConfig() Config {
	return Config{
		RuntimeDir:  os.Getenv("XDG_RUNTIME_DIR"),
		DisplayName: "wayland-0",
		IOEntries:   256,
	}
}

// Compositor owns every long-lived subsystem and the sockets clients
// connect through.
type Compositor struct {
	cfg     Config
	logger  *logging.Logger
	metrics *Metrics

	graph      *scene.Graph
	dispatcher *server.Dispatcher
	frameSched *sched.FrameScheduler
	rulesEng   *rules.Engine
	runtime    *crruntime.Runtime
	render     interfaces.RenderBackend

	mu          sync.Mutex
	seats       map[string]*input.Seat
	outputs     map[string]*scene.Output
	renderCtxs  map[string]interfaces.RenderContext
	shortcuts   *input.ShortcutTable
	listeners   []net.Listener
	nextClient  uint64

	state   atomic.Int32
	sockets []string // paths created under RuntimeDir, removed on Shutdown
}

// New builds a Compositor but does not yet listen on any socket or
// start its runtime loop; call Run to do both.
func New(cfg Config) (*Compositor, error) {
	if cfg.RenderBackend == nil {
		return nil, errors.New("waylens: Config.RenderBackend is required")
	}
	if cfg.RuntimeDir == "" {
		return nil, errors.New("waylens: Config.RuntimeDir (or $XDG_RUNTIME_DIR) is required")
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = "wayland-0"
	}
	if cfg.IOEntries == 0 {
		cfg.IOEntries = 256
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	rt, err := crruntime.New(cfg.IOEntries)
	if err != nil {
		return nil, errors.Wrap(err, "waylens: create runtime")
	}

	metrics := NewMetrics()
	c := &Compositor{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		graph:      scene.NewGraph(),
		dispatcher: server.NewDispatcher(logger, metrics),
		frameSched: sched.NewFrameScheduler(logger),
		rulesEng:   rules.NewEngine(),
		runtime:    rt,
		render:     cfg.RenderBackend,
		seats:      make(map[string]*input.Seat),
		outputs:    make(map[string]*scene.Output),
		renderCtxs: make(map[string]interfaces.RenderContext),
		shortcuts:  input.NewShortcutTable(),
	}

	return c, nil
}

// Rules returns the compositor's criteria engine, for installing rules
// built with internal/rules's constructors or parsed via LoadInto.
func (c *Compositor) Rules() *rules.Engine { return c.rulesEng }

// Graph returns the compositor's scene graph.
func (c *Compositor) Graph() *scene.Graph { return c.graph }

// Dispatcher returns the compositor's protocol dispatcher, for
// registering globals and request handlers.
func (c *Compositor) Dispatcher() *server.Dispatcher { return c.dispatcher }

// Metrics returns the compositor's metrics recorder.
func (c *Compositor) Metrics() *Metrics { return c.metrics }

// State reports the compositor's current lifecycle phase.
func (c *Compositor) State() State { return State(c.state.Load()) }

// AddSeat creates a seat with the given idle timeout and registers it.
func (c *Compositor) AddSeat(name string, idleTimeout time.Duration) *input.Seat {
	s := input.NewSeat(idleTimeout, interfaces.SystemClock{})
	c.mu.Lock()
	c.seats[name] = s
	c.mu.Unlock()
	return s
}

// Seat looks up a previously added seat by name.
func (c *Compositor) Seat(name string) (*input.Seat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.seats[name]
	return s, ok
}

// BindShortcut registers fn against a chord of the form
// "mod1+mod2+...+keycode" (e.g. "super+shift+36"), consuming the key
// whenever it matches. Recognized modifier names: shift, ctrl, alt,
// super (a.k.a. mod4/logo).
func (c *Compositor) BindShortcut(chord string, fn func()) error {
	mods, keycode, err := parseChord(chord)
	if err != nil {
		return err
	}
	c.shortcuts.Bind(mods, keycode, func() bool {
		fn()
		return true
	})
	return nil
}

// Shortcuts returns the compositor's shortcut table, consulted by
// every seat's key-event handling.
func (c *Compositor) Shortcuts() *input.ShortcutTable { return c.shortcuts }

// AddOutput creates a scene Output, a software-or-real render context
// for it via the configured RenderBackend, and an OutputScheduler
// driving its frame pacing, wiring them all into the compositor's
// frame scheduler manager.
func (c *Compositor) AddOutput(cfg OutputConfig) (*scene.Output, error) {
	if cfg.RefreshPeriod <= 0 {
		cfg.RefreshPeriod = 16666667 * time.Nanosecond // 60Hz
	}

	renderCtx, err := c.render.CreateContext()
	if err != nil {
		return nil, errors.Wrapf(err, "waylens: output %q: create render context", cfg.Name)
	}

	out := scene.NewOutput(cfg.Name, cfg.Width, cfg.Height)
	c.graph.AddOutput(out)

	outSched := sched.NewOutputScheduler(sched.Config{
		Name:          cfg.Name,
		Output:        out,
		Width:         cfg.Width,
		Height:        cfg.Height,
		Render:        renderCtx,
		RefreshPeriod: cfg.RefreshPeriod,
		Tearing:       cfg.Tearing,
		VRR:           cfg.VRR,
		Logger:        c.logger,
		Metrics:       c.metrics,
		Clock:         interfaces.SystemClock{},
	})
	c.frameSched.AddOutput(outSched)

	c.mu.Lock()
	c.outputs[cfg.Name] = out
	c.renderCtxs[cfg.Name] = renderCtx
	c.mu.Unlock()

	return out, nil
}

// Output looks up a previously added output by name.
func (c *Compositor) Output(name string) (*scene.Output, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.outputs[name]
	return o, ok
}

// RemoveOutput tears down an output's render context and unregisters
// it from the frame scheduler, modeling DRM hot-unplug.
func (c *Compositor) RemoveOutput(name string) error {
	c.mu.Lock()
	renderCtx, ok := c.renderCtxs[name]
	delete(c.renderCtxs, name)
	delete(c.outputs, name)
	c.mu.Unlock()
	if !ok {
		return errors.Errorf("waylens: unknown output %q", name)
	}
	c.frameSched.RemoveOutput(name)
	return renderCtx.Close()
}

// socketPath returns path/name under the compositor's runtime dir.
func (c *Compositor) socketPath(name string) string {
	return filepath.Join(c.cfg.RuntimeDir, name)
}

// listen creates and binds a UNIX socket at path, removing any stale
// socket left behind by a previous unclean shutdown first.
func listen(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// peerCredentials reads SO_PEERCRED off a freshly accepted UNIX
// connection, the same information the teacher's privileged-operation
// gating would read off a control socket if it had one.
func peerCredentials(conn *net.UnixConn) (server.Credentials, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return server.Credentials{}, err
	}
	var ucred *unix.Ucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return server.Credentials{}, err
	}
	if sockErr != nil {
		return server.Credentials{}, sockErr
	}
	exe, _ := os.Readlink(fmt.Sprintf("/proc/%d/exe", ucred.Pid))
	return server.Credentials{UID: int(ucred.Uid), PID: int(ucred.Pid), Exe: exe}, nil
}

// acceptLoop accepts connections on l until ctx is canceled, handing
// each off to its own Client/Conn pair running on the runtime's
// dispatch goroutine per §5's single-mutator rule.
func (c *Compositor) acceptLoop(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		uconn, ok := conn.(*net.UnixConn)
		if !ok {
			_ = conn.Close()
			continue
		}
		c.handleConn(ctx, uconn)
	}
}

func (c *Compositor) handleConn(ctx context.Context, uconn *net.UnixConn) {
	creds, err := peerCredentials(uconn)
	if err != nil {
		c.logger.Warn("waylens: reject connection: peer credentials", "error", err)
		_ = uconn.Close()
		return
	}

	id := atomic.AddUint64(&c.nextClient, 1)
	client := server.NewClient(server.Config{
		ID:      id,
		Conn:    uconn,
		Creds:   creds,
		Logger:  c.logger,
		Metrics: c.metrics,
		Clock:   interfaces.SystemClock{},
	})
	conn := server.NewConn(client, c.dispatcher)

	c.runtime.Spawn(func() {
		if err := conn.Run(ctx); err != nil {
			c.logger.Debug("waylens: client disconnected", "client", id, "error", err)
		}
	})
}

// Run starts listening on the compositor's display socket(s), starts
// the runtime's cooperative event loop and the frame scheduler's
// per-output tick loops, and blocks until ctx is canceled or a
// subsystem fails. Per §5's concurrency model, errgroup supervises
// these as a fixed pool of cooperating loops, not a dynamic worker
// pool.
func (c *Compositor) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return errors.Errorf("waylens: Run called in state %s", c.State())
	}
	defer c.state.Store(int32(StateStopped))

	path := c.socketPath(c.cfg.DisplayName)
	l, err := listen(path)
	if err != nil {
		return errors.Wrapf(err, "waylens: listen %s", path)
	}
	c.sockets = append(c.sockets, path)
	defer func() {
		for _, p := range c.sockets {
			_ = os.Remove(p)
		}
	}()

	privPath := path + ".jay"
	lp, err := listen(privPath)
	if err != nil {
		_ = l.Close()
		return errors.Wrapf(err, "waylens: listen %s", privPath)
	}
	c.sockets = append(c.sockets, privPath)

	c.mu.Lock()
	c.listeners = append(c.listeners, l, lp)
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.acceptLoop(gctx, l) })
	g.Go(func() error { return c.acceptLoop(gctx, lp) })
	g.Go(func() error { return c.runtime.Run(gctx) })
	g.Go(func() error { return c.frameSched.Run(gctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Shutdown closes every listener and render context, releasing all
// resources. Safe to call whether or not Run has returned.
func (c *Compositor) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, l := range c.listeners {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, rc := range c.renderCtxs {
		if err := rc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.runtime.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
