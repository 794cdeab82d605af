package server

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/waylens/waylens/internal/interfaces"
	"github.com/waylens/waylens/internal/registry"
	"github.com/waylens/waylens/internal/wire"
)

// HandlerFunc processes one decoded request for a bound object. Any
// non-nil error it returns is wrapped with the object id and opcode,
// reported to the client as a display.error event, and ends the
// connection.
type HandlerFunc func(client *Client, obj registry.Object, reader *wire.ArgReader) error

// handlerKey identifies a request the same way the wire format does:
// by the bound interface's name and the opcode within it.
type handlerKey struct {
	iface  string
	opcode uint16
}

// methodSchema records how many inline fds a given request consumes,
// needed by the reader before the object's interface is known to
// decide how many fds to pull off the ring for a given header.
type methodSchema struct {
	fdCount int
}

// Global is one advertisable protocol global: a named, versioned
// factory object clients discover through the registry singleton and
// bind with `wl_registry.bind`.
type Global struct {
	Name                string
	Interface           string
	Version             uint32
	RequiredCapabilities []string

	// replacing points at the predecessor this Global superseded after a
	// hot-reload. Both stay advertised; the predecessor is never
	// withdrawn.
	replacing *Global
}

// Dispatcher demultiplexes decoded requests to registered handlers and
// owns the set of advertised globals, generalizing the teacher's
// command-code switch in control.go into a table lookup keyed by
// (interface, opcode) instead of a single flat ublk command enum.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[handlerKey]HandlerFunc
	schemas  map[handlerKey]methodSchema
	globals  map[uint32]*Global
	nextGlobalName uint32

	logger  interfaces.Logger
	metrics interfaces.MetricsRecorder
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger interfaces.Logger, metrics interfaces.MetricsRecorder) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[handlerKey]HandlerFunc),
		schemas:  make(map[handlerKey]methodSchema),
		globals:  make(map[uint32]*Global),
		logger:   logger,
		metrics:  metrics,
	}
}

// RegisterHandler installs the handler for one (interface, opcode)
// request, along with how many inline fds that request carries.
func (d *Dispatcher) RegisterHandler(iface string, opcode uint16, fdCount int, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := handlerKey{iface: iface, opcode: opcode}
	d.handlers[key] = h
	d.schemas[key] = methodSchema{fdCount: fdCount}
}

// AddGlobal advertises a new global under a freshly allocated name and
// returns it.
func (d *Dispatcher) AddGlobal(iface string, version uint32, requiredCapabilities ...string) *Global {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextGlobalName++
	g := &Global{Name: fmt.Sprintf("%d", d.nextGlobalName), Interface: iface, Version: version, RequiredCapabilities: requiredCapabilities}
	d.globals[d.nextGlobalName] = g
	return g
}

// ReplaceGlobal installs a successor for name, keeping the predecessor
// advertised so existing bindings keep working. Bindings are not
// tracked, and nothing here ever removes the predecessor.
func (d *Dispatcher) ReplaceGlobal(name uint32, iface string, version uint32, requiredCapabilities ...string) *Global {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.globals[name]
	next := &Global{Name: fmt.Sprintf("%d-r", name), Interface: iface, Version: version, RequiredCapabilities: requiredCapabilities, replacing: old}
	d.globals[d.nextGlobalName+1] = next
	d.nextGlobalName++
	return next
}

// Globals returns a snapshot of currently advertised globals, for the
// registry singleton to emit as `global` events to a newly bound
// client.
func (d *Dispatcher) Globals() []*Global {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Global, 0, len(d.globals))
	for _, g := range d.globals {
		out = append(out, g)
	}
	return out
}

// Bind performs version negotiation for a client binding to a global:
// the negotiated version is min(requested, server max). An error is
// returned if the client lacks a required capability.
func (d *Dispatcher) Bind(client *Client, name uint32, requestedVersion uint32) (uint32, error) {
	d.mu.RLock()
	g, ok := d.globals[name]
	d.mu.RUnlock()
	if !ok {
		return 0, ErrUnknownID
	}
	for _, cap := range g.RequiredCapabilities {
		if !client.HasCapability(cap) {
			return 0, ErrPermissionDenied
		}
	}
	negotiated := requestedVersion
	if negotiated > g.Version {
		negotiated = g.Version
	}
	return negotiated, nil
}

// fdCount looks up how many inline fds the request named by hdr's
// opcode carries, resolved through the object's bound interface. It
// returns 0 (rather than erroring) for an unknown object or opcode so
// the caller's own ValidateHeader/Dispatch path produces the
// user-visible protocol error instead of a silent misparse here.
func (d *Dispatcher) fdCount(client *Client, hdr wire.Header) int {
	obj, ok := client.Registry().Lookup(registry.ObjectID(hdr.ObjectID))
	if !ok {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	schema, ok := d.schemas[handlerKey{iface: obj.Interface(), opcode: hdr.Opcode}]
	if !ok {
		return 0
	}
	return schema.fdCount
}

// Dispatch decodes msg's object and routes it to the registered
// handler. Any error is wrapped with the object id and opcode and
// reported to the client as a display.error event before being
// returned to the caller, who tears the connection down.
func (d *Dispatcher) Dispatch(client *Client, msg wire.Message) error {
	obj, ok := client.Registry().Lookup(registry.ObjectID(msg.ObjectID))
	if !ok {
		err := errors.Wrapf(ErrUnknownID, "object %d", msg.ObjectID)
		d.sendProtocolError(client, msg.ObjectID, err)
		return err
	}

	d.mu.RLock()
	h, ok := d.handlers[handlerKey{iface: obj.Interface(), opcode: msg.Opcode}]
	d.mu.RUnlock()
	if !ok {
		err := errors.Wrapf(ErrInvalidMethod, "object %d opcode %d (%s)", msg.ObjectID, msg.Opcode, obj.Interface())
		d.sendProtocolError(client, msg.ObjectID, err)
		return err
	}

	start := clockNowNanos(client)
	reader := wire.NewArgReader(msg)
	err := h(client, obj, reader)
	elapsed := clockNowNanos(client) - start

	if d.metrics != nil {
		d.metrics.RecordDispatch(uint64(elapsed), err)
	}
	if err != nil {
		wrapped := errors.Wrapf(err, "object %d opcode %d (%s)", msg.ObjectID, msg.Opcode, obj.Interface())
		d.sendProtocolError(client, msg.ObjectID, wrapped)
		return wrapped
	}
	return nil
}

func clockNowNanos(client *Client) int64 {
	return client.clock.Now().UnixNano()
}

// sendProtocolError encodes a display.error event and enqueues it on
// the client's outbound swapchain. The connection is expected to be
// torn down by the caller immediately afterward; this only gives the
// peer a chance to see why.
func (d *Dispatcher) sendProtocolError(client *Client, objectID uint32, cause error) {
	w := wire.NewArgWriter()
	w.PutObjectID(objectID)
	w.PutUint32(uint32(classify(cause)))
	w.PutString(cause.Error())
	msg := w.Build(1, 0) // display object (id 1), opcode 0: display.error

	buf := make([]byte, 8+len(msg.Payload))
	wire.EncodeHeader(msg.Header, buf)
	copy(buf[8:], msg.Payload)

	if err := client.output.Enqueue(buf); err != nil && d.logger != nil {
		d.logger.Warn("failed to enqueue protocol error", "client", client.ID(), "err", err)
	}
}

func classify(err error) ProtocolCode {
	switch {
	case errors.Is(err, ErrUnknownID):
		return ProtocolCodeUnknownObject
	case errors.Is(err, ErrInvalidMethod):
		return ProtocolCodeInvalidMethod
	case errors.Is(err, ErrPermissionDenied):
		return ProtocolCodeInvalidArgs
	default:
		return ProtocolCodeImplementation
	}
}
