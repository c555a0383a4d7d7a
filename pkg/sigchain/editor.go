package sigchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/randalmurphal/sigchain/pkg/sigchain/event"
	"github.com/randalmurphal/sigchain/pkg/sigchain/observability"
	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

// DefaultFirstNodeID is the first NodeID an Editor hands out.
const DefaultFirstNodeID NodeID = 100

// Editor owns a ChainSet and applies structural edits to it.
//
// Editor is single-writer: every method except Lock, IsLocked and
// Snapshot must be called from one control goroutine. Each edit is computed
// on a copy of the chain set, validated, and swapped in only if it
// succeeds, so a failed edit never leaves a partially linked graph. After
// every applied edit a Snapshot is built and handed to the Publisher.
type Editor struct {
	set      *ChainSet
	resolver Resolver
	nextID   NodeID
	locked   atomic.Bool

	clipboard []byte

	publisher Publisher
	snapshot  atomic.Pointer[Snapshot]
	pending   *Snapshot
	seq       uint64

	session string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	events  event.Bus
}

// NewEditor creates an editor with an empty chain set. A nil resolver
// turns every added or loaded node into a placeholder.
func NewEditor(resolver Resolver, opts ...Option) *Editor {
	if resolver == nil {
		resolver = ResolverFunc(func(d Descriptor) (Factory, error) {
			return Factory{}, fmt.Errorf("%w: %s", ErrUnresolved, d)
		})
	}
	e := &Editor{
		set:      NewChainSet(),
		resolver: resolver,
		nextID:   DefaultFirstNodeID,
		session:  uuid.New().String(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = observability.EnrichLogger(e.logger, e.session)
	e.snapshot.Store(buildSnapshot(e.set, 0))
	return e
}

// SessionID identifies this editor in logs and change notifications.
func (e *Editor) SessionID() string { return e.session }

// ChainSet returns a copy of the current chain set.
func (e *Editor) ChainSet() *ChainSet { return e.set.Clone() }

// Snapshot returns the execution order built after the last applied edit.
// It is safe to call from any goroutine.
func (e *Editor) Snapshot() *Snapshot { return e.snapshot.Load() }

// Pending reports whether the last snapshot was refused by the publisher
// and still awaits Republish.
func (e *Editor) Pending() bool { return e.pending != nil }

// Lock sets the gate that refuses structural edits. It may be called from
// the runtime's goroutine around a reconfiguration. The chain.locked event
// is delivered on the goroutine that calls Lock, before Lock returns; every
// other event is delivered on the control goroutine.
func (e *Editor) Lock(locked bool) {
	if e.locked.Swap(locked) == locked {
		return
	}
	// The chain set belongs to the control goroutine; only the gate is reported.
	e.emit(event.TypeChainLocked, event.ChainChange{Chain: -1, Locked: locked})
}

// IsLocked reports whether structural edits are refused.
func (e *Editor) IsLocked() bool { return e.locked.Load() }

// SelectChain makes chain i active, clamping i to the valid range, and
// returns the index actually selected. Selection is navigation, not a
// structural edit, so it is allowed while locked.
func (e *Editor) SelectChain(i int) int {
	got := e.set.selectChain(i)
	e.emit(event.TypeChainSelected, event.ChainChange{Chain: got, Count: e.set.Len(), Locked: e.IsLocked()})
	return got
}

// ActiveChain returns the active chain index, or -1 if there are no chains.
func (e *Editor) ActiveChain() int { return e.set.Active() }

// ChainCount returns the number of chains.
func (e *Editor) ChainCount() int { return e.set.Len() }

// IsEmpty reports whether chain i has no nodes.
func (e *Editor) IsEmpty(i int) bool { return e.set.IsEmpty(i) }

// Sequence returns the visible node sequence of the active chain. Insertion
// points index into it.
func (e *Editor) Sequence() []NodeID { return e.set.Sequence(e.set.Active()) }

// IndexOf returns the position of id in the active sequence, or -1.
func (e *Editor) IndexOf(id NodeID) int { return slices.Index(e.Sequence(), id) }

// Node returns a copy of the node with the given ID.
func (e *Editor) Node(id NodeID) (*Node, bool) {
	n, ok := e.set.nodes[id]
	if !ok {
		return nil, false
	}
	return n.clone(), true
}

// Nodes returns a copy of every node in ascending ID order.
func (e *Editor) Nodes() []*Node {
	ids := e.set.NodeIDs()
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = e.set.nodes[id].clone()
	}
	return out
}

// MoveSelection returns the node delta positions away from id in the
// active sequence, clamped to its ends. It backs keyboard navigation.
// If id is not in the sequence the first node is returned.
func (e *Editor) MoveSelection(id NodeID, delta int) NodeID {
	seq := e.Sequence()
	if len(seq) == 0 {
		return NoNode
	}
	i := slices.Index(seq, id)
	if i < 0 {
		return seq[0]
	}
	return seq[clamp(i+delta, 0, len(seq)-1)]
}

// Republish retries handing the pending snapshot to the publisher.
// It returns nil when nothing is pending.
func (e *Editor) Republish() error {
	if e.pending == nil || e.publisher == nil {
		return nil
	}
	snap := e.pending
	_, span := e.spans.StartPublishSpan(context.Background(), snap.ID(), snap.Seq())
	err := e.publisher.Publish(snap)
	e.spans.EndSpanWithError(span, err)
	e.metrics.RecordPublish(context.Background(), err == nil, snap.Len())
	if err != nil {
		observability.LogPublishBusy(e.logger, snap.ID(), err)
		return err
	}
	observability.LogPublish(e.logger, snap.ID(), snap.Seq(), snap.Len())
	e.pending = nil
	return nil
}

// apply runs fn against a copy of the chain set and installs the copy only
// if fn succeeds and the result is valid. A refused edit returns its error
// and leaves the editor untouched.
func (e *Editor) apply(op string, fn func(work *ChainSet) error) error {
	if e.locked.Load() {
		e.reject(op, ErrChainLocked)
		return ErrChainLocked
	}
	done := observability.TimedOperation()

	work := e.set.Clone()
	if err := fn(work); err != nil {
		e.reject(op, err)
		return err
	}
	if err := work.Validate(); err != nil {
		err = fmt.Errorf("%s produced an invalid chain set: %w", op, err)
		e.reject(op, err)
		return err
	}

	e.set = work
	e.metrics.RecordEdit(context.Background(), op, done())
	e.publish()
	return nil
}

// publish builds a snapshot of the current set and offers it to the
// publisher. A refused snapshot stays pending, superseding any older one.
func (e *Editor) publish() {
	e.seq++
	snap := buildSnapshot(e.set, e.seq)
	e.snapshot.Store(snap)
	if e.publisher == nil {
		return
	}
	e.pending = snap
	_ = e.Republish()
}

func (e *Editor) reject(op string, err error) {
	reason := "invalid"
	switch {
	case errors.Is(err, ErrChainLocked):
		reason = "locked"
	case errors.Is(err, ErrNodeNotFound):
		reason = "not_found"
	case errors.Is(err, ErrMalformedDocument):
		reason = "malformed"
	}
	e.metrics.RecordRejection(context.Background(), op, reason)
	observability.LogRejected(e.logger, op, err)
}

func (e *Editor) emit(typ string, payload any) {
	if e.events == nil {
		return
	}
	evt := event.New(typ, "editor", payload, event.WithCorrelationID(e.session))
	if err := e.events.Publish(context.Background(), evt); err != nil && e.logger != nil {
		e.logger.Warn("change notification failed",
			slog.String("type", typ),
			slog.String("error", err.Error()),
		)
	}
}

// alloc returns a fresh NodeID.
func (e *Editor) alloc() NodeID {
	id := e.nextID
	e.nextID++
	return id
}

// reserve makes sure id is never allocated.
func (e *Editor) reserve(id NodeID) {
	if id >= e.nextID {
		e.nextID = id + 1
	}
}

// instantiate resolves d and builds a node with the given ID. When strict
// is set the registered kind must equal want. saved parameters take
// precedence over the factory defaults. If the type cannot be resolved or
// constructed, a placeholder of shape want is returned with the error.
func (e *Editor) instantiate(id NodeID, d Descriptor, want Kind, strict bool, saved params.Set) (*Node, *ResolutionError) {
	f, err := e.resolver.Resolve(d)
	if err == nil {
		switch {
		case f.New == nil || f.Kind == KindMissing:
			err = fmt.Errorf("%w: %s has no constructor", ErrUnresolved, d)
		case strict && f.Kind != want:
			err = fmt.Errorf("%w: %s is registered as %s, recorded as %s", ErrUnresolved, f.Descriptor, f.Kind, want)
		}
	}

	var n *Node
	if err == nil {
		p := withDefaults(saved, f.Defaults)
		proc := f.New()
		if proc == nil {
			err = fmt.Errorf("%w: %s constructor returned nil", ErrUnresolved, d)
		} else if cerr := proc.Configure(p); cerr != nil {
			err = fmt.Errorf("configure %s: %w", f.Descriptor, cerr)
		} else {
			n = &Node{id: id, desc: f.Descriptor, kind: f.Kind, shape: f.Kind, params: p, proc: proc, newProc: f.New}
		}
	}
	if n != nil {
		return n, nil
	}

	if want == KindMissing {
		want = KindOrdinary
	}
	resErr := &ResolutionError{Descriptor: d, NodeID: id, Err: err}
	observability.LogResolutionFailure(e.logger, d.String(), int64(id), err)
	return &Node{id: id, desc: d, kind: KindMissing, shape: want, params: saved}, resErr
}

// withDefaults keeps saved in its order and appends any default it lacks.
func withDefaults(saved, defaults params.Set) params.Set {
	out := saved
	for _, p := range defaults.Params() {
		if !out.Has(p.Key) {
			out = out.Put(p.Key, p.Value)
		}
	}
	return out
}
