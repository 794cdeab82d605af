package server

import (
	"strconv"
	"testing"
	"time"

	"github.com/waylens/waylens/internal/registry"
	"github.com/waylens/waylens/internal/wire"
)

type fakeObject struct {
	iface   string
	version uint32
}

func (o fakeObject) Interface() string { return o.iface }
func (o fakeObject) Version() uint32   { return o.version }

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(Config{
		ID:           1,
		Capabilities: map[string]struct{}{"compositor.layer-shell": {}},
		Clock:        &fakeClock{t: time.Unix(0, 0)},
	})
}

func TestDispatcherBindVersionNegotiation(t *testing.T) {
	d := NewDispatcher(nil, nil)
	g := d.AddGlobal("wl_compositor", 5)
	client := newTestClient(t)

	v, err := d.Bind(client, mustGlobalName(g), 3)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if v != 3 {
		t.Errorf("expected negotiated version 3 (min of requested/server), got %d", v)
	}

	v, err = d.Bind(client, mustGlobalName(g), 9)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if v != 5 {
		t.Errorf("expected negotiated version clamped to server max 5, got %d", v)
	}
}

func TestDispatcherBindCapabilityGating(t *testing.T) {
	d := NewDispatcher(nil, nil)
	g := d.AddGlobal("zwlr_layer_shell_v1", 1, "compositor.xdg-activation")
	client := newTestClient(t)

	if _, err := d.Bind(client, mustGlobalName(g), 1); err != ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied for missing capability, got %v", err)
	}
}

func TestDispatcherReplaceGlobalKeepsBothAdvertised(t *testing.T) {
	d := NewDispatcher(nil, nil)
	g := d.AddGlobal("wl_output", 3)
	d.ReplaceGlobal(mustGlobalName(g), "wl_output", 4)

	globals := d.Globals()
	if len(globals) != 2 {
		t.Fatalf("expected old and replacement global both advertised, got %d", len(globals))
	}
}

func TestDispatchUnknownObjectReportsProtocolError(t *testing.T) {
	d := NewDispatcher(nil, nil)
	client := newTestClient(t)

	msg := wire.Message{Header: wire.Header{ObjectID: 42, Opcode: 1}}
	if err := d.Dispatch(client, msg); err == nil {
		t.Fatal("expected Dispatch to fail for an unregistered object id")
	}
	if client.output.Backlog() == 0 {
		t.Error("expected a display.error event to be enqueued")
	}
}

func TestDispatchUnknownOpcodeReportsProtocolError(t *testing.T) {
	d := NewDispatcher(nil, nil)
	client := newTestClient(t)
	if err := client.Registry().Register(10, fakeObject{iface: "wl_surface", version: 1}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	msg := wire.Message{Header: wire.Header{ObjectID: 10, Opcode: 99}}
	if err := d.Dispatch(client, msg); err == nil {
		t.Fatal("expected Dispatch to fail for an unregistered opcode")
	}
}

func TestDispatchRoutesToHandler(t *testing.T) {
	d := NewDispatcher(nil, nil)
	client := newTestClient(t)
	if err := client.Registry().Register(10, fakeObject{iface: "wl_surface", version: 1}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	called := false
	d.RegisterHandler("wl_surface", 0, 0, func(c *Client, obj registry.Object, r *wire.ArgReader) error {
		called = true
		return nil
	})

	msg := wire.Message{Header: wire.Header{ObjectID: 10, Opcode: 0}}
	if err := d.Dispatch(client, msg); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !called {
		t.Error("expected handler to be invoked")
	}
}

func TestDispatchFdCountResolvesThroughBoundInterface(t *testing.T) {
	d := NewDispatcher(nil, nil)
	client := newTestClient(t)
	if err := client.Registry().Register(10, fakeObject{iface: "wl_surface", version: 1}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	d.RegisterHandler("wl_surface", 0, 1, func(c *Client, obj registry.Object, r *wire.ArgReader) error { return nil })

	n := d.fdCount(client, wire.Header{ObjectID: 10, Opcode: 0})
	if n != 1 {
		t.Errorf("expected fd count 1, got %d", n)
	}
}

func mustGlobalName(g *Global) uint32 {
	n, err := strconv.Atoi(g.Name)
	if err != nil {
		return 0
	}
	return uint32(n)
}
