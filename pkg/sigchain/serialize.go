package sigchain

import (
	"context"
	"errors"
	"slices"

	"github.com/randalmurphal/sigchain/pkg/sigchain/event"
	"github.com/randalmurphal/sigchain/pkg/sigchain/observability"
)

// LoadReport describes the records of a document that could not be taken
// as written. None of them stop a load.
type LoadReport struct {
	// Chains and Nodes count what was built.
	Chains int
	Nodes  int

	// Unresolved lists records whose processor type is not installed.
	// Each became a missing placeholder.
	Unresolved []*ResolutionError

	// Collisions lists records whose ID was already in use. They were
	// dropped.
	Collisions []*CollisionError

	// Dropped lists nodes removed because their branch lost its head to a
	// collision, in addition to the colliding records themselves.
	Dropped []NodeID

	// IDs maps each saved node ID to the ID it was given.
	IDs map[NodeID]NodeID
}

// Recovered returns the number of records that were replaced or dropped.
func (r *LoadReport) Recovered() int {
	if r == nil {
		return 0
	}
	return len(r.Unresolved) + len(r.Collisions) + len(r.Dropped)
}

// Err joins every recovered problem, or returns nil.
func (r *LoadReport) Err() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, e := range r.Unresolved {
		errs = append(errs, e)
	}
	for _, e := range r.Collisions {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Serialize writes the whole chain set as a document. Serializing is
// allowed while locked.
func (e *Editor) Serialize() ([]byte, error) {
	return Encode(e.set.Document())
}

// Deserialize builds a chain set from data without installing it.
//
// With ignoreNodeID set every node gets a fresh ID, so the result can be
// added next to the current chains. Otherwise saved IDs are kept and any
// record whose ID is already in use is dropped with a CollisionError.
// Records whose processor is not installed become placeholders. A
// malformed document returns an error wrapping ErrMalformedDocument.
//
// IDs handed out here are taken from the editor's counter even though the
// result is not installed, so results of separate calls never share IDs
// with each other or with later edits.
func (e *Editor) Deserialize(data []byte, ignoreNodeID bool) (*ChainSet, *LoadReport, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	return e.build(doc, ignoreNodeID, e.set.nodes)
}

// Load replaces every chain with the chains of a document, keeping saved
// node IDs. A malformed document changes nothing. The returned report lists
// the records that became placeholders.
func (e *Editor) Load(data []byte) (*LoadReport, error) {
	return e.loadDocument(context.Background(), "load", "bytes", data, true, false)
}

// Import adds the chains of a document after the current ones. The first
// imported chain becomes active.
func (e *Editor) Import(data []byte, ignoreNodeID bool) (*LoadReport, error) {
	return e.loadDocument(context.Background(), "import", "bytes", data, false, ignoreNodeID)
}

func (e *Editor) loadDocument(ctx context.Context, op, source string, data []byte, replace, ignore bool) (*LoadReport, error) {
	var report *LoadReport
	err := e.apply(op, func(work *ChainSet) error {
		doc, err := Decode(data)
		if err != nil {
			return err
		}
		live := work.nodes
		if replace {
			live = nil
		}
		built, rep, err := e.build(doc, ignore, live)
		if err != nil {
			return err
		}
		report = rep
		if replace {
			*work = *built
			return nil
		}
		first := len(work.chains)
		for _, entry := range built.chains {
			for _, id := range built.members(entry) {
				work.nodes[id] = built.nodes[id]
			}
			work.chains = append(work.chains, entry)
		}
		if len(built.chains) > 0 {
			work.active = first
		}
		return nil
	})
	if err != nil {
		e.metrics.RecordLoad(ctx, source, 0, 0, err)
		observability.LogLoadError(e.logger, source, err)
		return nil, err
	}

	e.metrics.RecordLoad(ctx, source, report.Nodes, report.Recovered(), nil)
	observability.LogLoad(e.logger, source, report.Chains, report.Nodes, report.Recovered())
	e.emit(event.TypeDocumentLoaded, event.DocumentChange{
		Source:    source,
		Chains:    report.Chains,
		Nodes:     report.Nodes,
		Recovered: report.Recovered(),
	})
	return report, nil
}

// build turns a checked document into a chain set. IDs present in live
// collide unless ignore is set, in which case every node is renumbered.
func (e *Editor) build(doc *Document, ignore bool, live map[NodeID]*Node) (*ChainSet, *LoadReport, error) {
	staging := NewChainSet()
	records := make(map[NodeID]*NodeRecord)
	var order []NodeID
	for ci := range doc.Chains {
		ch := &doc.Chains[ci]
		for ri := range ch.Nodes {
			rec := &ch.Nodes[ri]
			kind, _ := ParseKind(rec.Kind)
			if kind == KindMissing {
				kind = KindOrdinary
			}
			active := PathA
			if rec.ActivePath != "" {
				active, _ = ParsePath(rec.ActivePath)
			}
			staging.nodes[rec.ID] = &Node{
				id:      rec.ID,
				kind:    kind,
				shape:   kind,
				active:  active,
				sources: [2]NodeID{rec.Source, rec.SourceB},
				dests:   [2]NodeID{rec.Dest, rec.DestB},
			}
			records[rec.ID] = rec
			order = append(order, rec.ID)
		}
		staging.chains = append(staging.chains, ch.Entry)
	}
	staging.selectChain(doc.ActiveChain)
	if err := staging.Validate(); err != nil {
		return nil, nil, &DocumentError{Chain: -1, Record: -1, Err: err}
	}

	report := &LoadReport{IDs: make(map[NodeID]NodeID)}

	if !ignore && len(live) > 0 {
		var collided []NodeID
		for _, id := range order {
			if _, taken := live[id]; taken {
				collided = append(collided, id)
				report.Collisions = append(report.Collisions,
					&CollisionError{ID: id, Descriptor: records[id].Descriptor()})
			}
		}
		if len(collided) > 0 {
			for _, group := range staging.removeAll(collided) {
				for _, id := range group {
					if !slices.Contains(collided, id) {
						report.Dropped = append(report.Dropped, id)
					}
				}
			}
		}
	}

	for _, id := range order {
		if _, kept := staging.nodes[id]; !kept {
			continue
		}
		if ignore {
			report.IDs[id] = e.alloc()
		} else {
			report.IDs[id] = id
			e.reserve(id)
		}
	}
	remap := func(id NodeID) NodeID {
		if id == NoNode {
			return NoNode
		}
		return report.IDs[id]
	}

	out := NewChainSet()
	for _, id := range order {
		staged, kept := staging.nodes[id]
		if !kept {
			continue
		}
		rec := records[id]
		n, resErr := e.instantiate(report.IDs[id], rec.Descriptor(), staged.shape, true, rec.Params)
		if resErr != nil {
			n.raw = rec.raw
			report.Unresolved = append(report.Unresolved, resErr)
		}
		n.name = rec.DisplayName
		n.active = staged.active
		for p := range 2 {
			n.sources[p] = remap(staged.sources[p])
			n.dests[p] = remap(staged.dests[p])
		}
		out.nodes[n.id] = n
	}
	for _, entry := range staging.chains {
		out.chains = append(out.chains, remap(entry))
	}
	out.active = staging.active
	if err := out.Validate(); err != nil {
		return nil, nil, &DocumentError{Chain: -1, Record: -1, Err: err}
	}

	report.Chains = out.Len()
	report.Nodes = out.NodeCount()
	return out, report, nil
}

// Equal reports whether two chain sets have the same nodes, links, chains
// and active index. Processors are not compared.
func (cs *ChainSet) Equal(other *ChainSet) bool {
	if cs.active != other.active || !slices.Equal(cs.chains, other.chains) || len(cs.nodes) != len(other.nodes) {
		return false
	}
	for id, n := range cs.nodes {
		o, ok := other.nodes[id]
		if !ok || !sameNode(n, o) || n.sources != o.sources || n.dests != o.dests {
			return false
		}
	}
	return true
}

// Equivalent reports whether two chain sets are equal up to a renumbering
// of their node IDs.
func (cs *ChainSet) Equivalent(other *ChainSet) bool {
	if cs.active != other.active || len(cs.chains) != len(other.chains) || len(cs.nodes) != len(other.nodes) {
		return false
	}
	mapping := make(map[NodeID]NodeID, len(cs.nodes))
	mapping[NoNode] = NoNode
	for ci := range cs.chains {
		a, b := cs.members(cs.chains[ci]), other.members(other.chains[ci])
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			mapping[a[i]] = b[i]
		}
	}
	for id, n := range cs.nodes {
		o, ok := other.nodes[mapping[id]]
		if !ok || !sameNode(n, o) {
			return false
		}
		for p := range 2 {
			if mapping[n.sources[p]] != o.sources[p] || mapping[n.dests[p]] != o.dests[p] {
				return false
			}
		}
	}
	return true
}

func sameNode(a, b *Node) bool {
	return a.desc == b.desc && a.kind == b.kind && a.shape == b.shape &&
		a.name == b.name && a.active == b.active && a.params.Equal(b.params)
}
