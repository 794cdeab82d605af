package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeIOBackend struct {
	submitted   []uint64
	completions []Completion
	closed      bool
}

func (f *fakeIOBackend) Submit(kind OpKind, fd int, buf []byte, offset uint64, userData uint64) error {
	f.submitted = append(f.submitted, userData)
	return nil
}

func (f *fakeIOBackend) Flush() (uint32, error) { return uint32(len(f.submitted)), nil }

func (f *fakeIOBackend) Wait(timeoutNs int64) ([]Completion, error) {
	out := f.completions
	f.completions = nil
	return out, nil
}

func (f *fakeIOBackend) Close() error {
	f.closed = true
	return nil
}

func TestSpawnRunsOnNextDrain(t *testing.T) {
	r := NewWithBackend(&fakeIOBackend{})
	ran := false
	r.Spawn(func() { ran = true })
	require.Equal(t, 1, r.drainReady())
	require.True(t, ran)
}

func TestDrainReadyIsFIFOAndClearsQueue(t *testing.T) {
	r := NewWithBackend(&fakeIOBackend{})
	var order []int
	r.Spawn(func() { order = append(order, 1) })
	r.Spawn(func() { order = append(order, 2) })
	r.drainReady()
	require.Equal(t, []int{1, 2}, order)
	require.Equal(t, 0, r.drainReady())
}

func TestIdleHookFiresOnlyWhenQueueDrains(t *testing.T) {
	r := NewWithBackend(&fakeIOBackend{})
	idleFired := 0
	r.OnIdle(func() { idleFired++ })

	r.Spawn(func() {})
	if n := r.drainReady(); n == 0 {
		r.fireIdleHooks()
	}
	require.Equal(t, 0, idleFired)

	if n := r.drainReady(); n == 0 {
		r.fireIdleHooks()
	}
	require.Equal(t, 1, idleFired)
}

func TestSubmitIODispatchesCompletionToWaiter(t *testing.T) {
	backend := &fakeIOBackend{}
	r := NewWithBackend(backend)

	var gotResult int32 = -1
	err := r.SubmitIO(OpRead, 3, nil, 0, func(c Completion) { gotResult = c.Result })
	require.NoError(t, err)
	require.Len(t, backend.submitted, 1)

	backend.completions = []Completion{{UserData: backend.submitted[0], Result: 42}}
	completions, err := backend.Wait(0)
	require.NoError(t, err)
	r.dispatchCompletions(completions)
	r.drainReady()

	require.Equal(t, int32(42), gotResult)
}

func TestAfterFuncFiresViaWheelAndReadyQueue(t *testing.T) {
	r := NewWithBackend(&fakeIOBackend{})
	fired := false
	r.AfterFunc(2*time.Millisecond, func() { fired = true })

	for i := 0; i < 2; i++ {
		for _, fn := range r.wheel.Advance() {
			fn() // arms the wrapped callback on the ready queue via Spawn
		}
	}
	require.False(t, fired, "callback should be queued, not yet run")
	r.drainReady()
	require.True(t, fired)
}

func TestRunExitsOnContextCancel(t *testing.T) {
	r := NewWithBackend(&fakeIOBackend{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseClosesBackend(t *testing.T) {
	backend := &fakeIOBackend{}
	r := NewWithBackend(backend)
	require.NoError(t, r.Close())
	require.True(t, backend.closed)
}
