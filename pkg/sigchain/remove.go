package sigchain

import (
	"slices"
)

// remove deletes node id and repairs every link that pointed at it.
// It returns the IDs of all nodes destroyed, id first, followed by any
// nodes of a pruned branch.
func (cs *ChainSet) remove(id NodeID) []NodeID {
	n, ok := cs.nodes[id]
	if !ok {
		return nil
	}

	switch n.shape {
	case KindSplitter:
		return cs.removeSplitter(n)
	case KindMerger:
		return cs.removeMerger(n)
	case KindOrdinary, KindUtility, KindMissing:
		cs.bypass(n, n.sources[PathA], n.dests[PathA])
		delete(cs.nodes, id)
		return []NodeID{id}
	default:
		panic("sigchain: unhandled node shape " + n.shape.String())
	}
}

// removeSplitter keeps the active path (or the only populated one),
// connects it to the splitter's predecessor and prunes the other path.
func (cs *ChainSet) removeSplitter(n *Node) []NodeID {
	keep := n.active
	if n.dests[keep] == NoNode {
		keep = keep.Other()
	}
	lost := n.dests[keep.Other()]
	if lost != NoNode {
		// Cut the lost path off before relinking so bypass sees one output.
		if h := cs.nodes[lost]; h != nil {
			if slot := h.inSlot(n.id); slot >= 0 {
				h.sources[slot] = NoNode
			}
		}
		n.dests[keep.Other()] = NoNode
	}

	cs.bypass(n, n.sources[PathA], n.dests[keep])
	delete(cs.nodes, n.id)

	removed := []NodeID{n.id}
	if lost != NoNode {
		removed = append(removed, cs.prune(lost)...)
	}
	return removed
}

// removeMerger keeps the active input (or the only populated one) and
// leaves the other input's branch ending where it used to join.
func (cs *ChainSet) removeMerger(n *Node) []NodeID {
	keep := n.active
	if n.sources[keep] == NoNode {
		keep = keep.Other()
	}
	if other := cs.nodes[n.sources[keep.Other()]]; other != nil {
		if slot := other.outSlot(n.id); slot >= 0 {
			other.dests[slot] = NoNode
		}
		n.sources[keep.Other()] = NoNode
	}

	cs.bypass(n, n.sources[keep], n.dests[PathA])
	delete(cs.nodes, n.id)
	return []NodeID{n.id}
}

// prune destroys every node reachable from head that is no longer
// reachable from any chain entry, clearing links from survivors into
// the pruned set. head must already be cut off from its predecessor.
func (cs *ChainSet) prune(head NodeID) []NodeID {
	alive := cs.allMembers()
	var removed []NodeID
	for _, id := range cs.reach(head, alive) {
		removed = append(removed, id)
	}
	dead := make(map[NodeID]bool, len(removed))
	for _, id := range removed {
		dead[id] = true
	}

	for _, id := range removed {
		n := cs.nodes[id]
		for _, d := range n.dests {
			if s := cs.nodes[d]; s != nil && !dead[d] {
				if slot := s.inSlot(id); slot >= 0 {
					s.sources[slot] = NoNode
				}
			}
		}
		for _, src := range n.sources {
			if p := cs.nodes[src]; p != nil && !dead[src] {
				if slot := p.outSlot(id); slot >= 0 {
					p.dests[slot] = NoNode
				}
			}
		}
	}
	for _, id := range removed {
		delete(cs.nodes, id)
	}
	return removed
}

// removeAll removes ids downstream-to-upstream and returns one group per
// removed node: its ID followed by the nodes of any branch pruned with it.
// IDs already destroyed as part of an earlier group are skipped.
func (cs *ChainSet) removeAll(ids []NodeID) [][]NodeID {
	rank := cs.topoRank()
	order := slices.Clone(ids)
	slices.SortStableFunc(order, func(a, b NodeID) int {
		return rank[b] - rank[a]
	})

	var groups [][]NodeID
	for _, id := range slices.Compact(order) {
		if _, ok := cs.nodes[id]; !ok {
			continue
		}
		groups = append(groups, cs.remove(id))
	}
	return groups
}

// topoRank numbers every node in a topological order of the whole set,
// chain by chain.
func (cs *ChainSet) topoRank() map[NodeID]int {
	rank := make(map[NodeID]int, len(cs.nodes))
	for _, entry := range cs.chains {
		for _, id := range cs.topoOrder(entry) {
			rank[id] = len(rank)
		}
	}
	return rank
}

// topoOrder returns the nodes of the chain rooted at entry so that every
// node comes after all of its predecessors. Ties follow depth-first order.
func (cs *ChainSet) topoOrder(entry NodeID) []NodeID {
	members := cs.members(entry)
	pos := make(map[NodeID]int, len(members))
	indeg := make(map[NodeID]int, len(members))
	var ready []NodeID
	for i, id := range members {
		pos[id] = i
		indeg[id] = len(cs.nodes[id].Predecessors())
		if indeg[id] == 0 {
			ready = append(ready, id)
		}
	}

	// Nodes on a cycle never become ready, so order comes out short.
	var order []NodeID
	for len(ready) > 0 {
		// Lowest depth-first position first keeps the order stable.
		slices.SortFunc(ready, func(a, b NodeID) int { return pos[a] - pos[b] })
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, d := range cs.nodes[id].Successors() {
			indeg[d]--
			if indeg[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return order
}
