package sched

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/waylens/waylens/internal/interfaces"
)

// FrameScheduler owns one OutputScheduler per enabled output and drives
// their render ticks, generalizing the teacher's Device owning one
// Runner per hardware queue (each with its own independent ioLoop) into
// one compositor owning one render loop per display output.
type FrameScheduler struct {
	mu      sync.Mutex
	outputs map[string]*OutputScheduler

	logger interfaces.Logger
}

// NewFrameScheduler creates an empty multi-output scheduler.
func NewFrameScheduler(logger interfaces.Logger) *FrameScheduler {
	return &FrameScheduler{
		outputs: make(map[string]*OutputScheduler),
		logger:  logger,
	}
}

// AddOutput registers an output's scheduler under its name.
func (f *FrameScheduler) AddOutput(o *OutputScheduler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[o.name] = o
}

// RemoveOutput unregisters an output's scheduler by name.
func (f *FrameScheduler) RemoveOutput(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.outputs, name)
}

// Output looks up a registered output scheduler by name.
func (f *FrameScheduler) Output(name string) (*OutputScheduler, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.outputs[name]
	return o, ok
}

// MarkDamaged schedules a render on the named output, a no-op if the
// output isn't registered (e.g. it was already removed).
func (f *FrameScheduler) MarkDamaged(name string) {
	f.mu.Lock()
	o := f.outputs[name]
	f.mu.Unlock()
	if o != nil {
		o.MarkDamaged()
	}
}

// Run starts one tick loop per registered output, each on its own
// output's refresh period, supervised by an errgroup the way the
// teacher pairs a device's read/write goroutines: the first tick loop
// to return (including via ctx cancellation) stops the rest.
func (f *FrameScheduler) Run(ctx context.Context) error {
	f.mu.Lock()
	outputs := make([]*OutputScheduler, 0, len(f.outputs))
	for _, o := range f.outputs {
		outputs = append(outputs, o)
	}
	f.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, o := range outputs {
		o := o
		g.Go(func() error { return f.tickLoop(ctx, o) })
	}
	return g.Wait()
}

func (f *FrameScheduler) tickLoop(ctx context.Context, o *OutputScheduler) error {
	ticker := time.NewTicker(o.refreshPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.Tick()
		}
	}
}
