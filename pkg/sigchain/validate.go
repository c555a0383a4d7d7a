package sigchain

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks every structural invariant of the chain set and returns
// all violations joined together, each wrapping ErrInvalidTopology.
//
// Validation checks:
//  1. Every chain entry exists and has no upstream link
//  2. Every link references an existing node and is mirrored by the target
//  3. Slot usage matches the node shape (splitters fan out, mergers fan in)
//  4. The two slots of a branch point never reference the same node
//  5. Every node belongs to exactly one chain
//  6. No chain contains a cycle
//  7. The active index is in range
func (cs *ChainSet) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidTopology}, args...)...))
	}

	// 1. Entries
	for i, entry := range cs.chains {
		n, ok := cs.nodes[entry]
		switch {
		case !ok:
			bad("chain %d entry %d does not exist", i, entry)
		case len(n.Predecessors()) > 0:
			bad("chain %d entry %d has an upstream link", i, entry)
		}
		if slices.Index(cs.chains, entry) != i {
			bad("node %d is the entry of more than one chain", entry)
		}
	}

	for _, id := range cs.NodeIDs() {
		n := cs.nodes[id]
		if n.id != id {
			bad("node %d is stored under ID %d", n.id, id)
		}

		// 2. Links and reciprocity
		for slot, d := range n.dests {
			if d == NoNode {
				continue
			}
			target, ok := cs.nodes[d]
			if !ok {
				bad("node %d output %s references missing node %d", id, Path(slot), d)
				continue
			}
			if target.inSlot(id) < 0 {
				bad("node %d output %s to %d is not mirrored", id, Path(slot), d)
			}
		}
		for slot, s := range n.sources {
			if s == NoNode {
				continue
			}
			origin, ok := cs.nodes[s]
			if !ok {
				bad("node %d input %s references missing node %d", id, Path(slot), s)
				continue
			}
			if origin.outSlot(id) < 0 {
				bad("node %d input %s from %d is not mirrored", id, Path(slot), s)
			}
		}

		// 3. Arity
		if n.shape != KindSplitter && n.dests[PathB] != NoNode {
			bad("%s node %d uses output B", n.shape, id)
		}
		if n.shape != KindMerger && n.sources[PathB] != NoNode {
			bad("%s node %d uses input B", n.shape, id)
		}
		if !n.active.Valid() {
			bad("node %d has invalid active path %d", id, int(n.active))
		}

		// 4. Distinct slots
		if n.dests[PathA] != NoNode && n.dests[PathA] == n.dests[PathB] {
			bad("splitter %d sends both paths to node %d", id, n.dests[PathA])
		}
		if n.sources[PathA] != NoNode && n.sources[PathA] == n.sources[PathB] {
			bad("merger %d receives both inputs from node %d", id, n.sources[PathA])
		}
	}

	// 5. Membership
	owner := make(map[NodeID]int, len(cs.nodes))
	for i, entry := range cs.chains {
		if _, ok := cs.nodes[entry]; !ok {
			continue
		}
		members := cs.members(entry)
		for _, id := range members {
			if prev, seen := owner[id]; seen {
				bad("node %d belongs to chains %d and %d", id, prev, i)
				continue
			}
			owner[id] = i
		}

		// 6. Cycles
		if order := cs.topoOrder(entry); len(order) != len(members) {
			bad("chain %d contains a cycle", i)
		}
	}
	for _, id := range cs.NodeIDs() {
		if _, ok := owner[id]; !ok {
			bad("node %d is not reachable from any chain entry", id)
		}
	}

	// 7. Active index
	if len(cs.chains) > 0 && (cs.active < 0 || cs.active >= len(cs.chains)) {
		bad("active chain %d out of range [0, %d)", cs.active, len(cs.chains))
	}

	return errors.Join(errs...)
}
