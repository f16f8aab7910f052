package soft

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/taigrr/culler/pkg/rhi"
)

// debugLayer validates resource states as lists execute. Violations are
// logged and kept for Messages.
type debugLayer struct {
	enabled bool
	log     *log.Logger

	mu       sync.Mutex
	messages []string
}

func (d *debugLayer) report(format string, args ...any) {
	if !d.enabled {
		return
	}
	msg := fmt.Sprintf(format, args...)
	d.log.Warn("validation", "msg", msg)
	d.mu.Lock()
	d.messages = append(d.messages, msg)
	d.mu.Unlock()
}

// Messages returns the validation failures reported so far. It is empty
// unless the device enabled the debug layer.
func (b *Backend) Messages() []string {
	b.debug.mu.Lock()
	defer b.debug.mu.Unlock()
	return append([]string(nil), b.debug.messages...)
}

// transition applies a legacy transition, checking its before state.
func (b *Backend) transition(r *resource, t rhi.TransitionBarrier) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if !r.untracked && r.state != t.Before {
		b.debug.report("transition of %q: before state %#x, resource is in %#x", r.name, t.Before, r.state)
	}
	r.state = t.After
	r.untracked = false
}

// untrack stops state validation for a resource touched by an enhanced
// barrier. Its layout is no longer a legacy state.
func (b *Backend) untrack(r *resource) {
	b.stateMu.Lock()
	r.untracked = true
	b.stateMu.Unlock()
}

// expect reports use of r outside want. StateCommon resources may be used
// as a copy source or destination by promotion.
func (b *Backend) expect(r *resource, want rhi.ResourceState, use string) {
	if !b.debug.enabled {
		return
	}
	b.stateMu.Lock()
	state, untracked := r.state, r.untracked
	b.stateMu.Unlock()
	if untracked || state&want == want {
		return
	}
	if state == rhi.StateCommon && want&(rhi.StateCopyDest|rhi.StateCopySource) != 0 {
		return
	}
	b.debug.report("%s: %q is in state %#x, needs %#x", use, r.name, state, want)
}

type counters struct {
	submits    atomic.Uint64
	lists      atomic.Uint64
	commands   atomic.Uint64
	barriers   atomic.Uint64
	copies     atomic.Uint64
	dispatches atomic.Uint64
	draws      atomic.Uint64
	primitives atomic.Uint64
	pixels     atomic.Uint64
	presents   atomic.Uint64
}

// Stats counts work executed by a Backend.
type Stats struct {
	Submits    uint64
	Lists      uint64
	Commands   uint64
	Barriers   uint64
	Copies     uint64
	Dispatches uint64
	Draws      uint64
	Primitives uint64
	Pixels     uint64
	Presents   uint64
}

// Stats returns a snapshot of the execution counters.
func (b *Backend) Stats() Stats {
	c := &b.stats
	return Stats{
		Submits:    c.submits.Load(),
		Lists:      c.lists.Load(),
		Commands:   c.commands.Load(),
		Barriers:   c.barriers.Load(),
		Copies:     c.copies.Load(),
		Dispatches: c.dispatches.Load(),
		Draws:      c.draws.Load(),
		Primitives: c.primitives.Load(),
		Pixels:     c.pixels.Load(),
		Presents:   c.presents.Load(),
	}
}
