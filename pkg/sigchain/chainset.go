package sigchain

import (
	"slices"
)

// Chain is a read-only view of one chain of a ChainSet.
type Chain struct {
	// Index is the position of the chain in the set.
	Index int
	// Entry is the node with no upstream link.
	Entry NodeID
	// Sequence is the visible node sequence, following the active path of
	// every splitter.
	Sequence []NodeID
	// Members lists every node of the chain, both paths of every splitter,
	// in depth-first order (path A before path B).
	Members []NodeID
}

// ChainSet holds every open chain and which one is active.
//
// Nodes live in an arena keyed by NodeID and reference each other by ID.
// A chain is identified by its entry node. ChainSet is not safe for
// concurrent use; the Editor owns it on the control thread and hands
// immutable Snapshots to other goroutines.
type ChainSet struct {
	nodes  map[NodeID]*Node
	chains []NodeID
	active int
}

// NewChainSet creates an empty chain set.
func NewChainSet() *ChainSet {
	return &ChainSet{nodes: make(map[NodeID]*Node)}
}

// Len returns the number of chains.
func (cs *ChainSet) Len() int {
	return len(cs.chains)
}

// NodeCount returns the number of nodes across all chains.
func (cs *ChainSet) NodeCount() int {
	return len(cs.nodes)
}

// Active returns the index of the active chain, or -1 when there are none.
func (cs *ChainSet) Active() int {
	if len(cs.chains) == 0 {
		return -1
	}
	return cs.active
}

// Node returns the node with the given ID.
func (cs *ChainSet) Node(id NodeID) (*Node, bool) {
	n, ok := cs.nodes[id]
	return n, ok
}

// NodeIDs returns every node ID in ascending order.
func (cs *ChainSet) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(cs.nodes))
	for id := range cs.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Entry returns the entry node of chain i, or NoNode if i is out of range.
func (cs *ChainSet) Entry(i int) NodeID {
	if i < 0 || i >= len(cs.chains) {
		return NoNode
	}
	return cs.chains[i]
}

// IsEmpty reports whether chain i has no nodes. Out-of-range chains are empty.
func (cs *ChainSet) IsEmpty(i int) bool {
	return cs.Entry(i) == NoNode
}

// Chain returns a view of chain i.
func (cs *ChainSet) Chain(i int) (Chain, bool) {
	entry := cs.Entry(i)
	if entry == NoNode {
		return Chain{}, false
	}
	return Chain{
		Index:    i,
		Entry:    entry,
		Sequence: cs.walk(entry),
		Members:  cs.members(entry),
	}, true
}

// Chains returns a view of every chain in order.
func (cs *ChainSet) Chains() []Chain {
	out := make([]Chain, 0, len(cs.chains))
	for i := range cs.chains {
		c, _ := cs.Chain(i)
		out = append(out, c)
	}
	return out
}

// Sequence returns the visible node sequence of chain i.
func (cs *ChainSet) Sequence(i int) []NodeID {
	entry := cs.Entry(i)
	if entry == NoNode {
		return nil
	}
	return cs.walk(entry)
}

// ChainOf returns the index of the chain containing id, or -1.
func (cs *ChainSet) ChainOf(id NodeID) int {
	if _, ok := cs.nodes[id]; !ok {
		return -1
	}
	for i, entry := range cs.chains {
		if slices.Contains(cs.members(entry), id) {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the chain set. Processors are shared and
// never reconfigured in place; edits install new ones.
func (cs *ChainSet) Clone() *ChainSet {
	out := &ChainSet{
		nodes:  make(map[NodeID]*Node, len(cs.nodes)),
		chains: slices.Clone(cs.chains),
		active: cs.active,
	}
	for id, n := range cs.nodes {
		out.nodes[id] = n.clone()
	}
	return out
}

// walk follows the forward slot of each node from entry: path A of
// ordinary nodes and mergers, the active path of splitters.
func (cs *ChainSet) walk(entry NodeID) []NodeID {
	var seq []NodeID
	seen := make(map[NodeID]bool)
	for id := entry; id != NoNode && !seen[id]; {
		n, ok := cs.nodes[id]
		if !ok {
			break
		}
		seen[id] = true
		seq = append(seq, id)
		id = n.dests[n.forwardSlot()]
	}
	return seq
}

// members returns every node reachable from entry, depth-first, path A
// before path B. Each node appears once even if two paths merge into it.
func (cs *ChainSet) members(entry NodeID) []NodeID {
	return cs.reach(entry, nil)
}

// reach returns the nodes reachable downstream of start in depth-first
// order, not descending into nodes in stop.
func (cs *ChainSet) reach(start NodeID, stop map[NodeID]bool) []NodeID {
	if start == NoNode {
		return nil
	}
	var out []NodeID
	seen := make(map[NodeID]bool)
	stack := []NodeID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == NoNode || seen[id] || stop[id] {
			continue
		}
		n, ok := cs.nodes[id]
		if !ok {
			continue
		}
		seen[id] = true
		out = append(out, id)
		// Push B first so A is visited first.
		stack = append(stack, n.dests[PathB], n.dests[PathA])
	}
	return out
}

// allMembers returns the reachable set of every chain.
func (cs *ChainSet) allMembers() map[NodeID]bool {
	alive := make(map[NodeID]bool, len(cs.nodes))
	for _, entry := range cs.chains {
		for _, id := range cs.members(entry) {
			alive[id] = true
		}
	}
	return alive
}

// indexOfChain returns the chain whose entry is id, or -1.
func (cs *ChainSet) indexOfChain(entry NodeID) int {
	return slices.Index(cs.chains, entry)
}

// setEntry replaces the entry of chain i. An empty entry deletes the chain
// and shifts the active index if it pointed past it.
func (cs *ChainSet) setEntry(i int, entry NodeID) {
	if entry != NoNode {
		cs.chains[i] = entry
		return
	}
	cs.chains = slices.Delete(cs.chains, i, i+1)
	switch {
	case len(cs.chains) == 0:
		cs.active = 0
	case cs.active > i || cs.active >= len(cs.chains):
		cs.active--
	}
}

// selectChain sets the active chain, clamped to the valid range.
func (cs *ChainSet) selectChain(i int) int {
	cs.active = clamp(i, 0, max(len(cs.chains)-1, 0))
	return cs.active
}

// splice inserts n, which must have no links, before position k of the
// visible sequence of chain i. k is clamped to [0, len(sequence)].
// If the set has no chain i, a new chain is started with n.
func (cs *ChainSet) splice(i int, k int, n *Node) int {
	cs.nodes[n.id] = n
	if i < 0 || i >= len(cs.chains) {
		cs.chains = append(cs.chains, n.id)
		return 0
	}

	seq := cs.walk(cs.chains[i])
	k = clamp(k, 0, len(seq))

	var prev, next *Node
	if k > 0 {
		prev = cs.nodes[seq[k-1]]
	}
	if k < len(seq) {
		next = cs.nodes[seq[k]]
	}

	if prev != nil {
		prev.dests[prev.forwardSlot()] = n.id
		n.sources[n.backwardSlot()] = prev.id
	}
	if next != nil {
		in := int(next.backwardSlot())
		if prev != nil {
			in = next.inSlot(prev.id)
		}
		next.sources[in] = n.id
		n.dests[n.forwardSlot()] = next.id
	}
	if k == 0 {
		cs.chains[i] = n.id
	}
	return k
}

// bypass unlinks n and connects pred directly to succ in the slots that
// pointed at n. If pred already feeds succ through another slot the
// resulting branch is empty, so both slots are cleared instead.
// The chain entry is updated when n was the entry.
func (cs *ChainSet) bypass(n *Node, pred, succ NodeID) {
	p := cs.nodes[pred]
	s := cs.nodes[succ]

	pOut, sIn := -1, -1
	if p != nil {
		pOut = p.outSlot(n.id)
	}
	if s != nil {
		sIn = s.inSlot(n.id)
	}

	duplicate := p != nil && s != nil && p.outSlot(succ) >= 0
	if p != nil && pOut >= 0 {
		if duplicate {
			p.dests[pOut] = NoNode
		} else {
			p.dests[pOut] = succ
		}
	}
	if s != nil && sIn >= 0 {
		if duplicate {
			s.sources[sIn] = NoNode
		} else {
			s.sources[sIn] = pred
		}
	}

	// An entry has no predecessor, so succ was already left without one.
	if ci := cs.indexOfChain(n.id); ci >= 0 {
		cs.setEntry(ci, succ)
	}
	n.clearLinks()
}

// detach unlinks n from its chain, keeping it in the arena. n must have at
// most one live input and one live output.
func (cs *ChainSet) detach(n *Node) {
	pred := firstLive(n.sources, n.backwardSlot())
	succ := firstLive(n.dests, n.forwardSlot())
	cs.bypass(n, pred, succ)
	delete(cs.nodes, n.id)
}

// firstLive returns the preferred slot if populated, else the other one.
func firstLive(slots [2]NodeID, preferred Path) NodeID {
	if slots[preferred] != NoNode {
		return slots[preferred]
	}
	return slots[preferred.Other()]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
