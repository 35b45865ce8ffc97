package canvas

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/meikuraledutech/ost"
)

// DefaultEditDelay is how long an editor waits for typing to stop.
const DefaultEditDelay = time.Second

// Editor batches rapid field edits per node. Each edit shows up on the canvas
// at once; the merged patch is sent when the node has been idle for the delay.
type Editor struct {
	store *Store
	delay time.Duration

	mu      sync.Mutex
	seq     uint64 // last timer issued, across all nodes
	pending map[string]*pendingEdit
}

type pendingEdit struct {
	patch ost.Patch
	timer *time.Timer
	seq   uint64
	ctx   context.Context
}

// NewEditor returns an editor for store. A non-positive delay means
// DefaultEditDelay.
func NewEditor(store *Store, delay time.Duration) *Editor {
	if delay <= 0 {
		delay = DefaultEditDelay
	}
	return &Editor{store: store, delay: delay, pending: make(map[string]*pendingEdit)}
}

// Edit applies p to id locally and schedules it for sending, restarting the
// node's idle timer.
func (e *Editor) Edit(ctx context.Context, id string, p ost.Patch) error {
	if err := e.store.applyLocal(id, p); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	pe, ok := e.pending[id]
	if !ok {
		pe = &pendingEdit{patch: p}
		e.pending[id] = pe
	} else {
		pe.patch = pe.patch.Merge(p)
		pe.timer.Stop()
	}
	e.seq++
	pe.seq = e.seq
	pe.ctx = context.WithoutCancel(ctx)
	seq := pe.seq
	pe.timer = time.AfterFunc(e.delay, func() { e.fire(id, seq) })
	return nil
}

func (e *Editor) fire(id string, seq uint64) {
	e.mu.Lock()
	pe, ok := e.pending[id]
	if !ok || pe.seq != seq {
		e.mu.Unlock()
		return
	}
	delete(e.pending, id)
	e.mu.Unlock()

	// Failures are notified and trigger a reload inside the store.
	_ = e.store.UpdateNodeData(pe.ctx, id, pe.patch)
}

// Pending reports the ids with edits not yet sent.
func (e *Editor) Pending() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.pending))
	for id := range e.pending {
		ids = append(ids, id)
	}
	return ids
}

// Flush sends every pending edit now and waits for the results.
func (e *Editor) Flush(ctx context.Context) error {
	e.mu.Lock()
	batch := e.pending
	e.pending = make(map[string]*pendingEdit)
	for _, pe := range batch {
		pe.timer.Stop()
	}
	e.mu.Unlock()

	var errs []error
	for id, pe := range batch {
		if err := e.store.UpdateNodeData(ctx, id, pe.patch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop drops every pending edit without sending it.
func (e *Editor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, pe := range e.pending {
		pe.timer.Stop()
		delete(e.pending, id)
	}
}
