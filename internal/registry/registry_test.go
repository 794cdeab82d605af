package registry

import (
	"errors"
	"testing"

	"github.com/waylens/waylens/internal/constants"
)

type fakeObject struct {
	iface   string
	version uint32
}

func (f fakeObject) Interface() string { return f.iface }
func (f fakeObject) Version() uint32   { return f.version }

func TestAllocateClientAndServerIDsDoNotOverlap(t *testing.T) {
	r := New()

	clientID := r.AllocateClientID()
	serverID := r.AllocateServerID()

	if clientID >= ObjectID(constants.ServerIDBase) {
		t.Errorf("client id %d should be below the server range", clientID)
	}
	if serverID < ObjectID(constants.ServerIDBase) {
		t.Errorf("server id %d should be at or above the server range", serverID)
	}
}

func TestRegisterLookupRemove(t *testing.T) {
	r := New()
	id := r.AllocateClientID()
	obj := fakeObject{iface: "wl_surface", version: 6}

	if err := r.Register(id, obj); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := r.Lookup(id)
	if !ok {
		t.Fatal("expected Lookup to find the registered object")
	}
	if got.Interface() != "wl_surface" {
		t.Errorf("expected wl_surface, got %s", got.Interface())
	}

	r.Remove(id)
	if _, ok := r.Lookup(id); ok {
		t.Error("expected Lookup to fail after Remove")
	}
	if !r.IsPendingRecycle(id) {
		t.Error("expected id to be pending recycle after Remove")
	}

	r.Recycle(id)
	if r.IsPendingRecycle(id) {
		t.Error("expected id to no longer be pending recycle after Recycle")
	}

	// The invariant at §4.1: after Remove + Recycle, the id may reappear
	// with any interface.
	if err := r.Register(id, fakeObject{iface: "wl_buffer", version: 1}); err != nil {
		t.Fatalf("expected id to be reusable with a different interface, got %v", err)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	id := r.AllocateClientID()
	obj := fakeObject{iface: "wl_surface", version: 6}

	if err := r.Register(id, obj); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(id, obj); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestLookupInterfaceWrongInterfaceFails(t *testing.T) {
	r := New()
	id := r.AllocateClientID()
	if err := r.Register(id, fakeObject{iface: "wl_surface", version: 6}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := r.LookupInterface(id, "wl_surface"); err != nil {
		t.Errorf("expected matching interface lookup to succeed, got %v", err)
	}
	if _, err := r.LookupInterface(id, "wl_buffer"); !errors.Is(err, ErrInvalidObject) {
		t.Errorf("expected ErrInvalidObject, got %v", err)
	}
	if _, err := r.LookupInterface(9999, "wl_surface"); !errors.Is(err, ErrUnknownID) {
		t.Errorf("expected ErrUnknownID, got %v", err)
	}
}

func TestRegistryLen(t *testing.T) {
	r := New()
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got len=%d", r.Len())
	}
	id := r.AllocateClientID()
	_ = r.Register(id, fakeObject{iface: "wl_surface", version: 6})
	if r.Len() != 1 {
		t.Errorf("expected len=1 after one registration, got %d", r.Len())
	}
	r.Remove(id)
	if r.Len() != 0 {
		t.Errorf("expected len=0 after Remove, got %d", r.Len())
	}
}
