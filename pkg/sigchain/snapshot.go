package sigchain

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

// Step is one node of a published execution order.
type Step struct {
	Node       NodeID
	Chain      int
	Kind       Kind
	Descriptor Descriptor
	Params     params.Set

	// Inputs and Outputs are the populated links in slot order.
	Inputs  []NodeID
	Outputs []NodeID

	// PassThrough is set for placeholders and for branch points left with
	// a single live path. The runtime forwards data through them unchanged.
	PassThrough bool

	// Processor is nil for placeholders. The editor never reconfigures a
	// processor after publishing it; parameter edits install a new one.
	Processor Processor
}

// Snapshot is an immutable execution order built from a validated chain
// set. Each chain is listed in topological order: every step comes after
// all of its inputs.
//
// Snapshots are handed to the runtime and may be read from any goroutine.
type Snapshot struct {
	id      string
	seq     uint64
	created time.Time
	chains  [][]Step
}

// ID returns the unique snapshot identifier.
func (s *Snapshot) ID() string { return s.id }

// Seq returns the position of the snapshot in the editor's publish order.
func (s *Snapshot) Seq() uint64 { return s.seq }

// Created returns when the snapshot was built.
func (s *Snapshot) Created() time.Time { return s.created }

// ChainCount returns the number of chains in the snapshot.
func (s *Snapshot) ChainCount() int { return len(s.chains) }

// Chain returns the steps of chain i, or nil if out of range.
func (s *Snapshot) Chain(i int) []Step {
	if i < 0 || i >= len(s.chains) {
		return nil
	}
	return slices.Clone(s.chains[i])
}

// Steps returns every step, chain by chain.
func (s *Snapshot) Steps() []Step {
	var out []Step
	for _, c := range s.chains {
		out = append(out, c...)
	}
	return out
}

// Len returns the total number of steps.
func (s *Snapshot) Len() int {
	n := 0
	for _, c := range s.chains {
		n += len(c)
	}
	return n
}

// Publisher receives snapshots after every applied edit.
//
// Publish returns an error wrapping ErrRuntimeBusy when the runtime cannot
// take a new topology right now. The editor keeps the snapshot pending and
// the caller may retry with Editor.Republish.
type Publisher interface {
	Publish(s *Snapshot) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(s *Snapshot) error

// Publish calls f(s).
func (f PublisherFunc) Publish(s *Snapshot) error {
	return f(s)
}

// buildSnapshot flattens a validated chain set.
func buildSnapshot(cs *ChainSet, seq uint64) *Snapshot {
	snap := &Snapshot{
		id:      uuid.New().String(),
		seq:     seq,
		created: time.Now(),
		chains:  make([][]Step, len(cs.chains)),
	}
	for ci, entry := range cs.chains {
		order := cs.topoOrder(entry)
		steps := make([]Step, 0, len(order))
		for _, id := range order {
			n := cs.nodes[id]
			steps = append(steps, Step{
				Node:        id,
				Chain:       ci,
				Kind:        n.kind,
				Descriptor:  n.desc,
				Params:      n.params,
				Inputs:      n.Predecessors(),
				Outputs:     n.Successors(),
				PassThrough: n.kind == KindMissing || n.IsPassThrough(),
				Processor:   n.proc,
			})
		}
		snap.chains[ci] = steps
	}
	return snap
}
