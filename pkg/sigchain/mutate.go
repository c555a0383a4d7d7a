package sigchain

import (
	"fmt"
	"slices"

	"github.com/randalmurphal/sigchain/pkg/sigchain/event"
	"github.com/randalmurphal/sigchain/pkg/sigchain/observability"
	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

// AddNode resolves d and splices a new node into the active chain before
// position k of its visible sequence. k is clamped to [0, len]. If there
// are no chains, chain 0 is created and selected.
//
// If d cannot be resolved a missing placeholder is added instead and
// returned together with a *ResolutionError; the edit still counts as
// applied. The returned node is a copy; look nodes up by ID afterwards.
func (e *Editor) AddNode(d Descriptor, k int) (*Node, error) {
	return e.add("add", d, func(work *ChainSet, n *Node) int {
		ci := work.Active()
		at := work.splice(ci, k, n)
		if ci < 0 {
			work.selectChain(0)
		}
		return at
	})
}

// AddChain starts a new chain whose only node is the resolved d and makes
// it the active chain.
func (e *Editor) AddChain(d Descriptor) (*Node, error) {
	return e.add("add_chain", d, func(work *ChainSet, n *Node) int {
		work.splice(work.Len(), 0, n)
		work.selectChain(work.Len() - 1)
		return 0
	})
}

func (e *Editor) add(op string, d Descriptor, place func(work *ChainSet, n *Node) int) (*Node, error) {
	var (
		added  *Node
		resErr *ResolutionError
		at     int
	)
	err := e.apply(op, func(work *ChainSet) error {
		added, resErr = e.instantiate(e.alloc(), d, KindOrdinary, false, params.Set{})
		at = place(work, added)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ci := e.set.ChainOf(added.id)
	observability.LogEdit(e.logger, op, int64(added.id), ci)
	e.emit(event.TypeNodeAdded, event.NodeChange{
		NodeID:     int64(added.id),
		Chain:      ci,
		Index:      at,
		Descriptor: added.desc.String(),
	})
	if resErr != nil {
		return added.clone(), resErr
	}
	return added.clone(), nil
}

// MoveNode takes id out of the active sequence and reinserts it before
// position k of the sequence as it is without the node. Moving the node
// back to its old index therefore restores the original order.
//
// The node must be in the active chain's visible sequence. A splitter or
// merger with both paths populated cannot be moved. Moving the only node
// of a sequence is a no-op.
func (e *Editor) MoveNode(id NodeID, k int) error {
	var at int
	err := e.apply("move", func(work *ChainSet) error {
		ci := work.Active()
		seq := work.Sequence(ci)
		if slices.Index(seq, id) < 0 {
			if _, ok := work.nodes[id]; !ok {
				return &NodeError{NodeID: id, Op: "move", Err: ErrNodeNotFound}
			}
			return &NodeError{NodeID: id, Op: "move", Err: ErrNotInActiveChain}
		}
		n := work.nodes[id]
		if len(n.Successors()) > 1 || len(n.Predecessors()) > 1 {
			return &NodeError{NodeID: id, Op: "move", Err: ErrBranchPointMove}
		}

		pred := work.nodes[firstLive(n.sources, n.backwardSlot())]
		succ := firstLive(n.dests, n.forwardSlot())
		if pred != nil && succ != NoNode && pred.outSlot(succ) >= 0 {
			// The other slot of pred already leads to succ: taking n out
			// would empty a branch that rejoins at the same merger.
			return &NodeError{NodeID: id, Op: "move", Err: ErrBranchCollapse}
		}

		at = slices.Index(seq, id)
		if len(seq) == 1 {
			return nil
		}
		work.detach(n)
		at = work.splice(ci, k, n)
		return nil
	})
	if err != nil {
		return err
	}

	observability.LogEdit(e.logger, "move", int64(id), e.set.Active())
	e.emit(event.TypeNodeMoved, event.NodeChange{NodeID: int64(id), Chain: e.set.Active(), Index: at})
	return nil
}

// RemoveNode destroys id and repairs every link around it. Removing a
// splitter keeps its active path (or the only populated one) and prunes the
// other. Removing a merger keeps its active input and leaves the other
// branch ending where it used to join.
func (e *Editor) RemoveNode(id NodeID) error {
	return e.removeIDs("remove", []NodeID{id}, true)
}

// RemoveSelected removes every listed node, downstream nodes first. IDs
// that are unknown or destroyed as part of an earlier pruned branch are
// skipped. It fails with ErrNodeNotFound only if none of the IDs exist.
func (e *Editor) RemoveSelected(ids []NodeID) error {
	return e.removeIDs("remove_selected", ids, false)
}

func (e *Editor) removeIDs(op string, ids []NodeID, strict bool) error {
	type removal struct {
		id     NodeID
		chain  int
		index  int
		desc   string
		pruned []int64
	}
	var removals []removal

	err := e.apply(op, func(work *ChainSet) error {
		var known []NodeID
		for _, id := range ids {
			if _, ok := work.nodes[id]; ok {
				known = append(known, id)
			} else if strict {
				return &NodeError{NodeID: id, Op: op, Err: ErrNodeNotFound}
			}
		}
		if len(known) == 0 {
			var first NodeID
			if len(ids) > 0 {
				first = ids[0]
			}
			return &NodeError{NodeID: first, Op: op, Err: ErrNodeNotFound}
		}

		before := make(map[NodeID]removal, len(known))
		for _, id := range known {
			ci := work.ChainOf(id)
			before[id] = removal{
				id:    id,
				chain: ci,
				index: slices.Index(work.Sequence(ci), id),
				desc:  work.nodes[id].desc.String(),
			}
		}

		for _, group := range work.removeAll(known) {
			r := before[group[0]]
			for _, pruned := range group[1:] {
				r.pruned = append(r.pruned, int64(pruned))
			}
			removals = append(removals, r)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, r := range removals {
		observability.LogEdit(e.logger, op, int64(r.id), r.chain)
		e.emit(event.TypeNodeRemoved, event.NodeChange{
			NodeID:     int64(r.id),
			Chain:      r.chain,
			Index:      r.index,
			Descriptor: r.desc,
			Pruned:     r.pruned,
		})
	}
	return nil
}

// SwitchBranch makes path p of a splitter or merger the active one. The
// inactive path is kept intact. Switching a merger also switches the
// splitters upstream of it so the visible sequence arrives through input p.
func (e *Editor) SwitchBranch(id NodeID, p Path) error {
	err := e.apply("switch", func(work *ChainSet) error {
		n, ok := work.nodes[id]
		if !ok {
			return &NodeError{NodeID: id, Op: "switch", Err: ErrNodeNotFound}
		}
		if !n.shape.IsBranchPoint() {
			return &NodeError{NodeID: id, Op: "switch", Err: ErrNotBranchPoint}
		}
		if !p.Valid() {
			return &NodeError{NodeID: id, Op: "switch", Err: ErrInvalidPath}
		}

		n.active = p
		if n.shape == KindMerger {
			work.routeTo(n)
		}
		work.syncMergers(work.ChainOf(id))
		// An empty input stays selected even though the walk cannot use it.
		n.active = p
		return nil
	})
	if err != nil {
		return err
	}

	observability.LogEdit(e.logger, "switch", int64(id), e.set.ChainOf(id))
	e.emit(event.TypeBranchSwitched, event.BranchChange{NodeID: int64(id), Path: p.String()})
	return nil
}

// routeTo switches every splitter upstream of merger m so that walking
// forward from the entry arrives through m's active input.
func (cs *ChainSet) routeTo(m *Node) {
	cur := m
	prev := m.sources[m.active]
	seen := map[NodeID]bool{m.id: true}
	for prev != NoNode && !seen[prev] {
		seen[prev] = true
		p := cs.nodes[prev]
		if p.shape == KindSplitter {
			if slot := p.outSlot(cur.id); slot >= 0 {
				p.active = Path(slot)
			}
		}
		cur = p
		prev = firstLive(p.sources, p.backwardSlot())
	}
}

// syncMergers points every merger on the visible sequence of chain ci at
// the input the sequence arrives through.
func (cs *ChainSet) syncMergers(ci int) {
	seq := cs.Sequence(ci)
	for i := 1; i < len(seq); i++ {
		n := cs.nodes[seq[i]]
		if n.shape != KindMerger {
			continue
		}
		if slot := n.inSlot(seq[i-1]); slot >= 0 {
			n.active = Path(slot)
		}
	}
}

// ConnectMerger links tail into the empty input p of merger. tail must be
// in the same chain, have a free output and not be downstream of merger.
func (e *Editor) ConnectMerger(merger NodeID, p Path, tail NodeID) error {
	fail := func(err error, format string, args ...any) error {
		return &NodeError{NodeID: merger, Op: "connect", Err: fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
	}
	err := e.apply("connect", func(work *ChainSet) error {
		m, ok := work.nodes[merger]
		if !ok {
			return &NodeError{NodeID: merger, Op: "connect", Err: ErrNodeNotFound}
		}
		t, ok := work.nodes[tail]
		if !ok {
			return &NodeError{NodeID: tail, Op: "connect", Err: ErrNodeNotFound}
		}
		if m.shape != KindMerger {
			return &NodeError{NodeID: merger, Op: "connect", Err: ErrNotBranchPoint}
		}
		if !p.Valid() {
			return &NodeError{NodeID: merger, Op: "connect", Err: ErrInvalidPath}
		}

		switch {
		case m.sources[p] != NoNode:
			return fail(ErrInvalidConnection, "input %s is already connected to %d", p, m.sources[p])
		case tail == merger:
			return fail(ErrInvalidConnection, "cannot connect a merger to itself")
		case work.ChainOf(tail) != work.ChainOf(merger):
			return fail(ErrInvalidConnection, "node %d is in another chain", tail)
		case m.inSlot(tail) >= 0 || t.outSlot(merger) >= 0:
			return fail(ErrInvalidConnection, "node %d already feeds the merger", tail)
		case slices.Contains(work.reach(merger, nil), tail):
			return fail(ErrInvalidConnection, "node %d is downstream of the merger", tail)
		}

		slot := freeOutput(t)
		if slot < 0 {
			return fail(ErrInvalidConnection, "node %d has no free output", tail)
		}
		t.dests[slot] = merger
		m.sources[p] = tail
		work.syncMergers(work.ChainOf(merger))
		return nil
	})
	if err != nil {
		return err
	}

	observability.LogEdit(e.logger, "connect", int64(merger), e.set.ChainOf(merger))
	e.emit(event.TypeNodeChanged, event.NodeChange{NodeID: int64(merger), Chain: e.set.ChainOf(merger)})
	return nil
}

// freeOutput returns the empty output slot of n to connect, or -1.
// Splitters prefer their inactive path.
func freeOutput(n *Node) int {
	if n.shape == KindSplitter {
		if n.dests[n.active.Other()] == NoNode {
			return int(n.active.Other())
		}
		if n.dests[n.active] == NoNode {
			return int(n.active)
		}
		return -1
	}
	if n.dests[PathA] == NoNode {
		return int(PathA)
	}
	return -1
}

// Clear destroys every node and chain.
func (e *Editor) Clear() error {
	err := e.apply("clear", func(work *ChainSet) error {
		*work = *NewChainSet()
		return nil
	})
	if err != nil {
		return err
	}

	observability.LogEdit(e.logger, "clear", 0, -1)
	e.emit(event.TypeChainCleared, event.ChainChange{Chain: -1})
	return nil
}

// Rename sets the display name of a node. An empty name restores the
// processor name.
func (e *Editor) Rename(id NodeID, name string) error {
	return e.changeNode("rename", id, func(n *Node) error {
		n.name = name
		return nil
	})
}

// SetParameters puts every entry of p on top of the node's parameter set
// and gives the node a new processor configured with the result. Keys
// absent from p keep their values. If the processor rejects the result the
// node keeps its old parameters and processor.
func (e *Editor) SetParameters(id NodeID, p params.Set) error {
	return e.changeNode("set_params", id, func(n *Node) error {
		if err := n.reconfigure(n.params.Merge(p)); err != nil {
			return &NodeError{NodeID: id, Op: "configure", Err: err}
		}
		return nil
	})
}

func (e *Editor) changeNode(op string, id NodeID, fn func(n *Node) error) error {
	err := e.apply(op, func(work *ChainSet) error {
		n, ok := work.nodes[id]
		if !ok {
			return &NodeError{NodeID: id, Op: op, Err: ErrNodeNotFound}
		}
		if n.kind == KindMissing {
			return &NodeError{NodeID: id, Op: op, Err: ErrPlaceholder}
		}
		return fn(n)
	})
	if err != nil {
		return err
	}

	ci := e.set.ChainOf(id)
	observability.LogEdit(e.logger, op, int64(id), ci)
	e.emit(event.TypeNodeChanged, event.NodeChange{
		NodeID:     int64(id),
		Chain:      ci,
		Index:      slices.Index(e.set.Sequence(ci), id),
		Descriptor: e.set.nodes[id].desc.String(),
	})
	return nil
}
