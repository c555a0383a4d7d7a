package sigchain

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

// NodeID identifies a processing node across the whole chain set.
// Zero means "no node" in link slots.
type NodeID int64

// NoNode is the empty link value.
const NoNode NodeID = 0

// Descriptor is the symbolic description of a processor type.
type Descriptor struct {
	// Name is the processor name shown in the processor list.
	Name string
	// Library is the plugin library that provides the processor.
	Library string
	// Version is the library version the node was created with.
	Version string
	// Category groups processors for display (Source, Filter, Sink, Utility).
	Category string
}

// String returns "Name vVersion" or "Name" when the version is unknown.
func (d Descriptor) String() string {
	if d.Version == "" {
		return d.Name
	}
	return fmt.Sprintf("%s v%s", d.Name, d.Version)
}

// Node is one processing node in the arena of a ChainSet.
//
// Links are stored as NodeIDs. Ordinary, utility and missing placeholders of
// an ordinary shape only use slot A of sources and dests. A splitter uses
// both dest slots, a merger both source slots.
//
// Node values are owned by their ChainSet; callers only read them.
type Node struct {
	id      NodeID
	desc    Descriptor
	kind    Kind
	shape   Kind
	name    string
	params  params.Set
	proc    Processor
	newProc func() Processor
	sources [2]NodeID
	dests   [2]NodeID
	active  Path
	raw     *yaml.Node
}

// ID returns the node identifier.
func (n *Node) ID() NodeID { return n.id }

// Descriptor returns the processor type descriptor.
func (n *Node) Descriptor() Descriptor { return n.desc }

// Kind returns the processor kind. Placeholders report KindMissing.
func (n *Node) Kind() Kind { return n.kind }

// Shape returns the link arity of the node: its own kind, or for a missing
// placeholder the kind recorded in the unresolved description.
func (n *Node) Shape() Kind { return n.shape }

// Name returns the display name, falling back to the descriptor name.
func (n *Node) Name() string {
	if n.name != "" {
		return n.name
	}
	return n.desc.Name
}

// Params returns the node's parameter set.
func (n *Node) Params() params.Set { return n.params }

// Processor returns the constructed processor, or nil for placeholders.
func (n *Node) Processor() Processor { return n.proc }

// ActivePath returns the path currently active for viewing and editing.
// It is only meaningful for branch points.
func (n *Node) ActivePath() Path { return n.active }

// Source returns the upstream link. For a merger it returns the active input.
func (n *Node) Source() NodeID {
	if n.shape == KindMerger {
		return n.sources[n.active]
	}
	return n.sources[PathA]
}

// Dest returns the downstream link. For a splitter it returns the active path.
func (n *Node) Dest() NodeID {
	if n.shape == KindSplitter {
		return n.dests[n.active]
	}
	return n.dests[PathA]
}

// Input returns the upstream slot p. Only mergers populate PathB.
func (n *Node) Input(p Path) NodeID {
	if !p.Valid() {
		return NoNode
	}
	return n.sources[p]
}

// Output returns the downstream slot p. Only splitters populate PathB.
func (n *Node) Output(p Path) NodeID {
	if !p.Valid() {
		return NoNode
	}
	return n.dests[p]
}

// Successors returns the populated downstream links in slot order.
func (n *Node) Successors() []NodeID {
	return compact(n.dests)
}

// Predecessors returns the populated upstream links in slot order.
func (n *Node) Predecessors() []NodeID {
	return compact(n.sources)
}

// IsPassThrough reports whether a branch point has degenerated to a single
// live path and therefore forwards data without fan-out or fan-in.
func (n *Node) IsPassThrough() bool {
	switch n.shape {
	case KindSplitter:
		return len(compact(n.dests)) < 2
	case KindMerger:
		return len(compact(n.sources)) < 2
	default:
		return false
	}
}

// forwardSlot is the dest slot followed when walking the visible sequence.
func (n *Node) forwardSlot() Path {
	if n.shape == KindSplitter {
		return n.active
	}
	return PathA
}

// backwardSlot is the source slot filled when a node is spliced after
// nothing (at the head of a chain) or after a predecessor.
func (n *Node) backwardSlot() Path {
	if n.shape == KindMerger {
		return n.active
	}
	return PathA
}

// outSlot returns the dest slot that points at target, or -1.
func (n *Node) outSlot(target NodeID) int {
	for i, d := range n.dests {
		if d == target && d != NoNode {
			return i
		}
	}
	return -1
}

// inSlot returns the source slot that points at target, or -1.
func (n *Node) inSlot(target NodeID) int {
	for i, s := range n.sources {
		if s == target && s != NoNode {
			return i
		}
	}
	return -1
}

func (n *Node) clearLinks() {
	n.sources = [2]NodeID{}
	n.dests = [2]NodeID{}
}

// reconfigure builds a fresh processor configured with p and installs it
// together with p. The previous processor may belong to a published
// snapshot and is never touched. On error the node is unchanged.
func (n *Node) reconfigure(p params.Set) error {
	if n.newProc == nil {
		n.params = p
		return nil
	}
	proc := n.newProc()
	if proc == nil {
		return fmt.Errorf("%w: %s constructor returned nil", ErrUnresolved, n.desc)
	}
	if err := proc.Configure(p); err != nil {
		return err
	}
	n.proc = proc
	n.params = p
	return nil
}

func (n *Node) clone() *Node {
	c := *n
	return &c
}

func compact(slots [2]NodeID) []NodeID {
	out := make([]NodeID, 0, 2)
	for _, id := range slots {
		if id != NoNode {
			out = append(out, id)
		}
	}
	return out
}
