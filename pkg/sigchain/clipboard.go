package sigchain

import (
	"slices"

	"github.com/randalmurphal/sigchain/pkg/sigchain/event"
	"github.com/randalmurphal/sigchain/pkg/sigchain/observability"
)

// Copy stores the given nodes of the active sequence, in sequence order,
// as a linear run for Paste. IDs outside the active sequence are ignored;
// if none remain an error wrapping ErrNotInActiveChain is returned and the
// clipboard is unchanged. Copy is allowed while locked.
func (e *Editor) Copy(ids []NodeID) error {
	var run []NodeID
	for _, id := range e.Sequence() {
		if slices.Contains(ids, id) {
			run = append(run, id)
		}
	}
	if len(run) == 0 {
		var first NodeID
		if len(ids) > 0 {
			first = ids[0]
		}
		return &NodeError{NodeID: first, Op: "copy", Err: ErrNotInActiveChain}
	}

	tmp := NewChainSet()
	for i, id := range run {
		n := e.set.nodes[id].clone()
		n.clearLinks()
		tmp.splice(0, i, n)
	}
	data, err := Encode(tmp.Document())
	if err != nil {
		return err
	}
	e.clipboard = data
	return nil
}

// CanPaste reports whether Copy has stored anything.
func (e *Editor) CanPaste() bool { return len(e.clipboard) > 0 }

// Paste inserts fresh copies of the copied nodes before position k of the
// active sequence and returns their IDs in order. Records whose processor
// is no longer installed are pasted as placeholders and reported in the
// returned error; the paste itself still applies.
func (e *Editor) Paste(k int) ([]NodeID, error) {
	var (
		pasted []NodeID
		report *LoadReport
	)
	err := e.apply("paste", func(work *ChainSet) error {
		if len(e.clipboard) == 0 {
			return ErrEmptyClipboard
		}
		doc, err := Decode(e.clipboard)
		if err != nil {
			return err
		}
		built, rep, err := e.build(doc, true, nil)
		if err != nil {
			return err
		}
		report = rep
		if built.Len() == 0 {
			return ErrEmptyClipboard
		}

		ci := work.Active()
		if ci < 0 {
			ci = 0
		}
		seq := built.Sequence(0)
		k = clamp(k, 0, len(work.Sequence(ci)))
		for i, id := range seq {
			n := built.nodes[id]
			n.clearLinks()
			work.splice(ci, k+i, n)
			if len(work.chains) == 1 {
				work.active = 0
			}
		}
		pasted = seq
		return nil
	})
	if err != nil {
		return nil, err
	}

	ci := e.set.ChainOf(pasted[0])
	for i, id := range pasted {
		observability.LogEdit(e.logger, "paste", int64(id), ci)
		e.emit(event.TypeNodeAdded, event.NodeChange{
			NodeID:     int64(id),
			Chain:      ci,
			Index:      k + i,
			Descriptor: e.set.nodes[id].desc.String(),
		})
	}
	return pasted, report.Err()
}
