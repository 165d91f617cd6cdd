// Package journal records the effects of one Engine operation so they can be
// undone as a unit.
//
// Components call Record before mutating in-memory state and Emit for every
// event they raise. The Engine opens a root journal per operation; reentrant
// calls open a child journal (a savepoint) whose effects fold into the parent
// on Commit, or are undone on Rollback without touching the parent.
package journal

import (
	"context"

	"github.com/chainpayid/chainpay/event"
)

// Kind names the class of record a Key points to.
type Kind string

// Record kinds tracked for persistence.
const (
	KindAccount   Kind = "account"
	KindAllowance Kind = "allowance"
	KindMerchant  Kind = "merchant"
	KindInvoice   Kind = "invoice"
	KindCounter   Kind = "counter"
)

// Key identifies a mutated record.
type Key struct {
	Kind Kind
	ID   string
}

// Journal is the undo log of one operation or savepoint. It is not safe for
// concurrent use; the Engine serializes access.
type Journal struct {
	parent *Journal
	undo   []func()
	dirty  []Key
	seen   map[Key]struct{}
	events []event.Event
	closed bool
}

type ctxKey struct{}

// Begin opens a journal and returns a context carrying it. If ctx already
// carries a journal the new one is a savepoint nested under it.
func Begin(ctx context.Context) (context.Context, *Journal) {
	j := &Journal{
		parent: FromContext(ctx),
		seen:   make(map[Key]struct{}),
	}
	return context.WithValue(ctx, ctxKey{}, j), j
}

// BeginRoot opens a root journal, ignoring any journal already in ctx.
func BeginRoot(ctx context.Context) (context.Context, *Journal) {
	j := &Journal{seen: make(map[Key]struct{})}
	return context.WithValue(ctx, ctxKey{}, j), j
}

// FromContext returns the innermost journal, or nil.
func FromContext(ctx context.Context) *Journal {
	j, _ := ctx.Value(ctxKey{}).(*Journal)
	return j
}

// Record registers undo for a mutation of key. Without a journal in ctx the
// mutation is permanent and Record does nothing.
func Record(ctx context.Context, key Key, undo func()) {
	if j := FromContext(ctx); j != nil {
		j.record(key, undo)
	}
}

// Emit buffers evt until the operation commits. Without a journal in ctx the
// event is dropped.
func Emit(ctx context.Context, evt event.Event) {
	if j := FromContext(ctx); j != nil && !j.closed {
		j.events = append(j.events, evt)
	}
}

func (j *Journal) record(key Key, undo func()) {
	if j.closed {
		return
	}
	if undo != nil {
		j.undo = append(j.undo, undo)
	}
	j.markDirty(key)
}

func (j *Journal) markDirty(key Key) {
	if _, ok := j.seen[key]; ok {
		return
	}
	j.seen[key] = struct{}{}
	j.dirty = append(j.dirty, key)
}

// Open reports whether j has been neither committed nor rolled back.
func (j *Journal) Open() bool { return !j.closed }

// IsRoot reports whether j has no parent.
func (j *Journal) IsRoot() bool { return j.parent == nil }

// Depth returns the nesting level, zero for a root journal.
func (j *Journal) Depth() int {
	d := 0
	for p := j.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Dirty returns the mutated keys in first-touch order.
func (j *Journal) Dirty() []Key {
	out := make([]Key, len(j.dirty))
	copy(out, j.dirty)
	return out
}

// Events returns the buffered events in emission order.
func (j *Journal) Events() []event.Event {
	out := make([]event.Event, len(j.events))
	copy(out, j.events)
	return out
}

// Commit closes j. A savepoint hands its undo log, dirty keys and events to
// its parent so an outer failure still undoes them.
func (j *Journal) Commit() {
	if j.closed {
		return
	}
	j.closed = true

	p := j.parent
	if p == nil {
		return
	}
	p.undo = append(p.undo, j.undo...)
	for _, k := range j.dirty {
		p.markDirty(k)
	}
	p.events = append(p.events, j.events...)
}

// Rollback undoes every recorded mutation in reverse order and discards the
// buffered events.
func (j *Journal) Rollback() {
	if j.closed {
		return
	}
	j.closed = true

	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
	j.dirty = nil
	j.events = nil
}

// Undo reverts a root journal that was already committed, used when
// persisting the committed changes fails. It is a no-op on savepoints.
func (j *Journal) Undo() {
	if j.parent != nil {
		return
	}
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
	j.events = nil
}
