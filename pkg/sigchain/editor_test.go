package sigchain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/sigchain/pkg/sigchain/event"
	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

func TestScenario_BuildBranch(t *testing.T) {
	ed := newTestEditor()
	assert.Equal(t, 0, ed.ChainCount())
	assert.True(t, ed.IsEmpty(0))

	a, err := ed.AddNode(filterA, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, ed.ChainCount())
	assert.Equal(t, 0, ed.ActiveChain())
	assert.Len(t, ed.Nodes(), 1)
	assert.NotEqual(t, NoNode, a.ID())

	s, err := ed.AddNode(splitter, 1)
	require.NoError(t, err)
	assert.Len(t, ed.Nodes(), 2)
	assert.NotEqual(t, a.ID(), s.ID())
	assert.Equal(t, KindSplitter, s.Kind())
	assert.Equal(t, NoNode, s.Output(PathA))
	assert.Equal(t, NoNode, s.Output(PathB))

	c := mustAdd(t, ed, filterC, 2)
	sn, _ := ed.Node(s.ID())
	assert.Equal(t, c, sn.Output(PathA))
	assert.Equal(t, NoNode, sn.Output(PathB))

	require.NoError(t, ed.SwitchBranch(s.ID(), PathB))
	d := mustAdd(t, ed, filterD, 2)

	sn, _ = ed.Node(s.ID())
	assert.Equal(t, d, sn.Output(PathB))
	assert.Equal(t, c, sn.Output(PathA), "path A is untouched")
	cn, _ := ed.Node(c)
	assert.Equal(t, NoNode, cn.Dest())
	assert.Equal(t, []NodeID{a.ID(), s.ID(), d}, ed.Sequence())
	require.NoError(t, ed.ChainSet().Validate())
}

func TestAddNode_Clamps(t *testing.T) {
	ed := newTestEditor()
	a := mustAdd(t, ed, filterA, -5)
	c := mustAdd(t, ed, filterC, 99)
	d := mustAdd(t, ed, filterD, -1)
	assert.Equal(t, []NodeID{d, a, c}, ed.Sequence())
}

func TestAddNode_AppliesDefaults(t *testing.T) {
	ed := newTestEditor()
	id := mustAdd(t, ed, filterA, 0)
	n, ok := ed.Node(id)
	require.True(t, ok)
	assert.Equal(t, []string{"gain", "mode"}, n.Params().Keys())
	require.NotNil(t, n.Processor())
	assert.Equal(t, "auto", n.Processor().(*stubProcessor).p.String("mode", ""))
}

func TestAddNode_Unresolved(t *testing.T) {
	ed := newTestEditor()
	n, err := ed.AddNode(legacy, 0)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.ErrorIs(t, err, ErrUnresolved)
	require.NotNil(t, n, "the placeholder is still added")
	assert.Equal(t, resErr.NodeID, n.ID())
	assert.Equal(t, KindMissing, n.Kind())
	assert.Equal(t, KindOrdinary, n.Shape())
	assert.Nil(t, n.Processor())
	assert.Equal(t, []NodeID{n.ID()}, ed.Sequence())

	// A placeholder keeps its record; it cannot be edited.
	assert.ErrorIs(t, ed.Rename(n.ID(), "amp"), ErrPlaceholder)
	assert.ErrorIs(t, ed.SetParameters(n.ID(), params.FromMap(map[string]any{"gain": 2})), ErrPlaceholder)
}

func TestAddNode_NilResolver(t *testing.T) {
	ed := NewEditor(nil)
	n, err := ed.AddNode(filterA, 0)
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.Equal(t, KindMissing, n.Kind())
}

func TestAddChain(t *testing.T) {
	ed := newTestEditor()
	a := mustAdd(t, ed, filterA, 0)
	c, err := ed.AddChain(filterC)
	require.NoError(t, err)

	assert.Equal(t, 2, ed.ChainCount())
	assert.Equal(t, 1, ed.ActiveChain())
	assert.Equal(t, []NodeID{c.ID()}, ed.Sequence())

	d := mustAdd(t, ed, filterD, 1)
	assert.Equal(t, []NodeID{c.ID(), d}, ed.Sequence())

	assert.Equal(t, 0, ed.SelectChain(0))
	assert.Equal(t, []NodeID{a}, ed.Sequence())
}

func TestSelectChain_Clamps(t *testing.T) {
	ed := newTestEditor()
	assert.Equal(t, 0, ed.SelectChain(3), "no chains")

	mustAdd(t, ed, filterA, 0)
	_, err := ed.AddChain(filterC)
	require.NoError(t, err)

	assert.Equal(t, 1, ed.SelectChain(7))
	assert.Equal(t, 0, ed.SelectChain(-2))
	assert.False(t, ed.IsEmpty(1))
	assert.True(t, ed.IsEmpty(2))
}

func TestRemoveLastNode_DeletesChain(t *testing.T) {
	ed := newTestEditor()
	a := mustAdd(t, ed, filterA, 0)
	c, err := ed.AddChain(filterC)
	require.NoError(t, err)
	d, err := ed.AddChain(filterD)
	require.NoError(t, err)
	require.Equal(t, 2, ed.ActiveChain())

	require.NoError(t, ed.RemoveNode(c.ID()))
	assert.Equal(t, 2, ed.ChainCount())
	assert.Equal(t, 1, ed.ActiveChain(), "active index shifts down with its chain")
	assert.Equal(t, []NodeID{d.ID()}, ed.Sequence())

	require.NoError(t, ed.RemoveNode(d.ID()))
	require.NoError(t, ed.RemoveNode(a))
	assert.Equal(t, 0, ed.ChainCount())
	assert.Equal(t, -1, ed.ActiveChain())
}

func TestLocked_RejectsMutations(t *testing.T) {
	f := newDiamondFixture(t)
	ed := f.ed
	before := mustSerialize(t, ed)

	ed.Lock(true)
	assert.True(t, ed.IsLocked())

	mutations := map[string]func() error{
		"add": func() error {
			_, err := ed.AddNode(filterA, 0)
			return err
		},
		"add_chain": func() error {
			_, err := ed.AddChain(filterA)
			return err
		},
		"remove":          func() error { return ed.RemoveNode(f.c) },
		"remove_selected": func() error { return ed.RemoveSelected([]NodeID{f.c, f.d}) },
		"move":            func() error { return ed.MoveNode(f.e, 0) },
		"switch":          func() error { return ed.SwitchBranch(f.s, PathB) },
		"clear":           ed.Clear,
		"rename":          func() error { return ed.Rename(f.a, "x") },
		"set_params":      func() error { return ed.SetParameters(f.a, params.New()) },
		"connect":         func() error { return ed.ConnectMerger(f.m, PathA, f.c) },
		"load":            func() error { _, err := ed.Load(before); return err },
		"import":          func() error { _, err := ed.Import(before, true); return err },
	}
	for name, fn := range mutations {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, fn(), ErrChainLocked)
			assert.Equal(t, string(before), string(mustSerialize(t, ed)))
		})
	}

	ed.Lock(false)
	assert.NoError(t, ed.RemoveNode(f.c))
}

func TestMoveNode_Restores(t *testing.T) {
	ed := newTestEditor()
	ids := []NodeID{
		mustAdd(t, ed, filterA, 0),
		mustAdd(t, ed, filterC, 1),
		mustAdd(t, ed, filterD, 2),
		mustAdd(t, ed, filterE, 3),
	}
	original := ed.Sequence()
	require.Equal(t, ids, original)

	for _, id := range ids {
		for k := range len(ids) + 1 {
			from := ed.IndexOf(id)
			require.NoError(t, ed.MoveNode(id, k))
			require.NoError(t, ed.ChainSet().Validate())
			require.NoError(t, ed.MoveNode(id, from))
			if diff := cmp.Diff(original, ed.Sequence()); diff != "" {
				t.Fatalf("move %d to %d and back (-want +got):\n%s", id, k, diff)
			}
		}
	}
}

func TestMoveNode_Entry(t *testing.T) {
	ed := newTestEditor()
	a := mustAdd(t, ed, filterA, 0)
	c := mustAdd(t, ed, filterC, 1)
	d := mustAdd(t, ed, filterD, 2)

	require.NoError(t, ed.MoveNode(a, 2))
	assert.Equal(t, []NodeID{c, d, a}, ed.Sequence())
	assert.Equal(t, c, ed.ChainSet().Entry(0))
}

func TestMoveNode_Errors(t *testing.T) {
	f := newDiamondFixture(t)

	assert.ErrorIs(t, f.ed.MoveNode(999, 0), ErrNodeNotFound)
	assert.ErrorIs(t, f.ed.MoveNode(f.d, 0), ErrNotInActiveChain, "path B is not visible")
	assert.ErrorIs(t, f.ed.MoveNode(f.s, 0), ErrBranchPointMove)
	assert.ErrorIs(t, f.ed.MoveNode(f.m, 0), ErrBranchPointMove)

	// Without D, path B runs straight from the splitter into the merger,
	// so C is all that keeps path A apart from it.
	require.NoError(t, f.ed.RemoveNode(f.d))
	sn, _ := f.ed.Node(f.s)
	assert.Equal(t, f.m, sn.Output(PathB))
	assert.ErrorIs(t, f.ed.MoveNode(f.c, 0), ErrBranchCollapse)

	before := mustSerialize(t, f.ed)
	assert.NoError(t, f.ed.MoveNode(f.e, 0), "outside the branch moves freely")
	require.NoError(t, f.ed.MoveNode(f.e, 4))
	assert.Equal(t, string(before), string(mustSerialize(t, f.ed)))
}

func TestMoveNode_SingleNode(t *testing.T) {
	ed := newTestEditor()
	a := mustAdd(t, ed, filterA, 0)
	require.NoError(t, ed.MoveNode(a, 3))
	assert.Equal(t, []NodeID{a}, ed.Sequence())
}

func TestMoveNode_IntoBranch(t *testing.T) {
	f := newBranchFixture(t)
	e := mustAdd(t, f.ed, filterE, 0)
	require.Equal(t, []NodeID{e, f.a, f.s, f.c}, f.ed.Sequence())

	// Move E to the end: it lands after C on path A.
	require.NoError(t, f.ed.MoveNode(e, 3))
	assert.Equal(t, []NodeID{f.a, f.s, f.c, e}, f.ed.Sequence())

	require.NoError(t, f.ed.SwitchBranch(f.s, PathB))
	assert.Equal(t, []NodeID{f.a, f.s, f.d}, f.ed.Sequence())
}

func TestRemoveSplitter_KeepsActivePath(t *testing.T) {
	f := newBranchFixture(t)
	c2 := mustAdd(t, f.ed, filterE, 4)
	require.Equal(t, []NodeID{f.a, f.s, f.c, c2}, f.ed.Sequence())

	require.NoError(t, f.ed.RemoveNode(f.s))

	assert.Equal(t, []NodeID{f.a, f.c, c2}, f.ed.Sequence())
	an, _ := f.ed.Node(f.a)
	assert.Equal(t, f.c, an.Dest())
	cn, _ := f.ed.Node(f.c)
	assert.Equal(t, f.a, cn.Source())
	_, ok := f.ed.Node(f.d)
	assert.False(t, ok, "the inactive path is destroyed")
	assert.Len(t, f.ed.Nodes(), 3)
	require.NoError(t, f.ed.ChainSet().Validate())
}

func TestRemoveSplitter_EmptyActivePath(t *testing.T) {
	f := newBranchFixture(t)
	require.NoError(t, f.ed.RemoveNode(f.c))
	require.NoError(t, f.ed.RemoveNode(f.s))
	assert.Equal(t, []NodeID{f.a, f.d}, f.ed.Sequence(), "the populated path survives")
}

func TestRemoveSplitter_AsEntry(t *testing.T) {
	ed := newTestEditor()
	s := mustAdd(t, ed, splitter, 0)
	c := mustAdd(t, ed, filterC, 1)
	require.NoError(t, ed.SwitchBranch(s, PathB))
	mustAdd(t, ed, filterD, 1)
	require.NoError(t, ed.SwitchBranch(s, PathA))

	require.NoError(t, ed.RemoveNode(s))
	assert.Equal(t, []NodeID{c}, ed.Sequence())
	assert.Equal(t, c, ed.ChainSet().Entry(0))
}

func TestRemovePath_CollapsesToPassThrough(t *testing.T) {
	f := newBranchFixture(t)
	sn, _ := f.ed.Node(f.s)
	assert.False(t, sn.IsPassThrough())

	require.NoError(t, f.ed.RemoveNode(f.d))

	sn, _ = f.ed.Node(f.s)
	assert.True(t, sn.IsPassThrough())
	assert.Equal(t, []NodeID{f.c}, sn.Successors())

	var step Step
	for _, st := range f.ed.Snapshot().Steps() {
		if st.Node == f.s {
			step = st
		}
	}
	assert.True(t, step.PassThrough)
}

func TestRemoveMerger_KeepsActiveInput(t *testing.T) {
	f := newDiamondFixture(t)
	require.NoError(t, f.ed.RemoveNode(f.m))

	assert.Equal(t, []NodeID{f.a, f.s, f.c, f.e}, f.ed.Sequence())
	dn, _ := f.ed.Node(f.d)
	assert.Equal(t, NoNode, dn.Dest(), "the other input ends where it joined")
	require.NoError(t, f.ed.ChainSet().Validate())
}

func TestRemoveSelected_DownstreamFirst(t *testing.T) {
	f := newBranchFixture(t)
	// C goes first, leaving path A empty, so the splitter keeps path B.
	require.NoError(t, f.ed.RemoveSelected([]NodeID{f.s, f.c}))
	assert.Equal(t, []NodeID{f.a, f.d}, f.ed.Sequence())
}

func TestRemoveSelected_SkipsUnknown(t *testing.T) {
	f := newBranchFixture(t)
	require.NoError(t, f.ed.RemoveSelected([]NodeID{f.s, f.d, 999}))
	assert.Equal(t, []NodeID{f.a, f.c}, f.ed.Sequence())

	assert.ErrorIs(t, f.ed.RemoveSelected([]NodeID{998, 999}), ErrNodeNotFound)
	assert.ErrorIs(t, f.ed.RemoveSelected(nil), ErrNodeNotFound)
	assert.ErrorIs(t, f.ed.RemoveNode(999), ErrNodeNotFound)
}

func TestSwitchBranch(t *testing.T) {
	f := newBranchFixture(t)
	assert.Equal(t, []NodeID{f.a, f.s, f.c}, f.ed.Sequence())

	require.NoError(t, f.ed.SwitchBranch(f.s, PathB))
	assert.Equal(t, []NodeID{f.a, f.s, f.d}, f.ed.Sequence())
	sn, _ := f.ed.Node(f.s)
	assert.Equal(t, PathB, sn.ActivePath())

	assert.ErrorIs(t, f.ed.SwitchBranch(f.a, PathB), ErrNotBranchPoint)
	assert.ErrorIs(t, f.ed.SwitchBranch(f.s, Path(5)), ErrInvalidPath)
	assert.ErrorIs(t, f.ed.SwitchBranch(999, PathA), ErrNodeNotFound)
}

func TestSwitchMerger_RoutesUpstream(t *testing.T) {
	f := newDiamondFixture(t)
	assert.Equal(t, []NodeID{f.a, f.s, f.c, f.m, f.e}, f.ed.Sequence())

	require.NoError(t, f.ed.SwitchBranch(f.m, PathB))
	assert.Equal(t, []NodeID{f.a, f.s, f.d, f.m, f.e}, f.ed.Sequence())
	sn, _ := f.ed.Node(f.s)
	assert.Equal(t, PathB, sn.ActivePath())

	// Inserting before the merger lands on the active input.
	x := mustAdd(t, f.ed, filterA, 3)
	assert.Equal(t, []NodeID{f.a, f.s, f.d, x, f.m, f.e}, f.ed.Sequence())
	mn, _ := f.ed.Node(f.m)
	assert.Equal(t, x, mn.Input(PathB))
	assert.Equal(t, f.c, mn.Input(PathA))

	require.NoError(t, f.ed.SwitchBranch(f.s, PathA))
	mn, _ = f.ed.Node(f.m)
	assert.Equal(t, PathA, mn.ActivePath(), "mergers follow the visible path")
}

func TestConnectMerger_Errors(t *testing.T) {
	f := newDiamondFixture(t)

	tests := []struct {
		name   string
		merger NodeID
		path   Path
		tail   NodeID
		want   error
	}{
		{"unknown merger", 999, PathA, f.c, ErrNodeNotFound},
		{"unknown tail", f.m, PathA, 999, ErrNodeNotFound},
		{"not a merger", f.c, PathA, f.a, ErrNotBranchPoint},
		{"invalid path", f.m, Path(3), f.a, ErrInvalidPath},
		{"occupied input", f.m, PathA, f.a, ErrInvalidConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.ed.ConnectMerger(tt.merger, tt.path, tt.tail), tt.want)
		})
	}

}

func TestConnectMerger_Rejects(t *testing.T) {
	// A -> S{A: C, B: D} -> M -> E with D left dangling on path B.
	ed := newTestEditor()
	a := mustAdd(t, ed, filterA, 0)
	s := mustAdd(t, ed, splitter, 1)
	c := mustAdd(t, ed, filterC, 2)
	m := mustAdd(t, ed, merger, 3)
	e := mustAdd(t, ed, filterE, 4)
	require.NoError(t, ed.SwitchBranch(s, PathB))
	d := mustAdd(t, ed, filterD, 2)
	before := mustSerialize(t, ed)

	assert.ErrorIs(t, ed.ConnectMerger(m, PathB, e), ErrInvalidConnection, "downstream of the merger")
	assert.ErrorIs(t, ed.ConnectMerger(m, PathB, m), ErrInvalidConnection)
	assert.ErrorIs(t, ed.ConnectMerger(m, PathB, c), ErrInvalidConnection, "already feeds it")
	assert.ErrorIs(t, ed.ConnectMerger(m, PathB, a), ErrInvalidConnection, "no free output")
	assert.ErrorIs(t, ed.ConnectMerger(m, PathB, s), ErrInvalidConnection, "both paths populated")

	other, err := ed.AddChain(filterD)
	require.NoError(t, err)
	assert.ErrorIs(t, ed.ConnectMerger(m, PathB, other.ID()), ErrInvalidConnection, "another chain")
	require.NoError(t, ed.RemoveNode(other.ID()))
	assert.Equal(t, string(before), string(mustSerialize(t, ed)))

	require.NoError(t, ed.ConnectMerger(m, PathB, d))
	mn, _ := ed.Node(m)
	assert.Equal(t, d, mn.Input(PathB))
	assert.Equal(t, PathB, mn.ActivePath(), "the visible path arrives through input B")
	assert.Equal(t, []NodeID{a, s, d, m, e}, ed.Sequence())
}

func TestClear(t *testing.T) {
	f := newDiamondFixture(t)
	require.NoError(t, f.ed.Clear())
	assert.Equal(t, 0, f.ed.ChainCount())
	assert.Empty(t, f.ed.Nodes())
	assert.Empty(t, f.ed.Sequence())

	a := mustAdd(t, f.ed, filterA, 0)
	assert.Greater(t, a, f.e, "IDs are never reused")
}

func TestRenameAndSetParameters(t *testing.T) {
	ed := newTestEditor()
	a := mustAdd(t, ed, filterA, 0)

	n, _ := ed.Node(a)
	assert.Equal(t, "FilterA", n.Name())
	require.NoError(t, ed.Rename(a, "Highpass"))
	n, _ = ed.Node(a)
	assert.Equal(t, "Highpass", n.Name())

	require.NoError(t, ed.SetParameters(a, params.FromMap(map[string]any{"gain": 4})))
	n, _ = ed.Node(a)
	assert.Equal(t, 4, n.Params().Int("gain", 0))
	assert.Equal(t, "auto", n.Params().String("mode", ""), "unlisted keys are kept")
	assert.Equal(t, 4, n.Processor().(*stubProcessor).p.Int("gain", 0))

	err := ed.SetParameters(a, params.FromMap(map[string]any{"gain": 9, "fail": true}))
	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "configure", nodeErr.Op)
	n, _ = ed.Node(a)
	assert.Equal(t, 4, n.Params().Int("gain", 0), "rejected parameters are not kept")
	assert.Equal(t, 4, n.Processor().(*stubProcessor).p.Int("gain", 0))

	assert.ErrorIs(t, ed.Rename(999, "x"), ErrNodeNotFound)
}

func TestSetParameters_LeavesPublishedProcessor(t *testing.T) {
	ed := newTestEditor()
	a := mustAdd(t, ed, filterA, 0)

	published := ed.Snapshot().Steps()[0].Processor.(*stubProcessor)
	require.NoError(t, ed.SetParameters(a, params.FromMap(map[string]any{"gain": 7})))

	assert.Equal(t, 1, published.p.Int("gain", 0), "published processors are never reconfigured")
	current := ed.Snapshot().Steps()[0].Processor.(*stubProcessor)
	assert.NotSame(t, published, current)
	assert.Equal(t, 7, current.p.Int("gain", 0))

	require.Error(t, ed.SetParameters(a, params.FromMap(map[string]any{"fail": true})))
	n, _ := ed.Node(a)
	assert.Same(t, current, n.Processor(), "a rejected edit keeps the processor")
	assert.Equal(t, 7, current.p.Int("gain", 0))
}

func TestMoveSelection(t *testing.T) {
	ed := newTestEditor()
	assert.Equal(t, NoNode, ed.MoveSelection(1, 1))

	a := mustAdd(t, ed, filterA, 0)
	c := mustAdd(t, ed, filterC, 1)
	d := mustAdd(t, ed, filterD, 2)

	assert.Equal(t, c, ed.MoveSelection(a, 1))
	assert.Equal(t, d, ed.MoveSelection(a, 10))
	assert.Equal(t, a, ed.MoveSelection(c, -5))
	assert.Equal(t, a, ed.MoveSelection(999, 1))
}

func TestSnapshot_TopologicalOrder(t *testing.T) {
	f := newDiamondFixture(t)
	snap := f.ed.Snapshot()
	require.Equal(t, 1, snap.ChainCount())

	var order []NodeID
	for _, st := range snap.Chain(0) {
		order = append(order, st.Node)
	}
	assert.Equal(t, []NodeID{f.a, f.s, f.c, f.d, f.m, f.e}, order)

	pos := func(id NodeID) int {
		for i, n := range order {
			if n == id {
				return i
			}
		}
		return -1
	}
	for _, st := range snap.Steps() {
		for _, in := range st.Inputs {
			assert.Less(t, pos(in), pos(st.Node))
		}
	}
	assert.Nil(t, snap.Chain(3))
}

func TestSnapshot_SeqAdvancesOnlyOnApply(t *testing.T) {
	ed := newTestEditor()
	assert.Equal(t, uint64(0), ed.Snapshot().Seq())
	a := mustAdd(t, ed, filterA, 0)
	first := ed.Snapshot()
	assert.Equal(t, uint64(1), first.Seq())

	assert.Error(t, ed.MoveNode(999, 0))
	assert.Same(t, first, ed.Snapshot())

	require.NoError(t, ed.Rename(a, "x"))
	assert.Equal(t, uint64(2), ed.Snapshot().Seq())
	assert.NotEqual(t, first.ID(), ed.Snapshot().ID())
}

func TestPublisher_BusyIsRetryable(t *testing.T) {
	busy := true
	var got []*Snapshot
	pub := PublisherFunc(func(s *Snapshot) error {
		if busy {
			return ErrRuntimeBusy
		}
		got = append(got, s)
		return nil
	})
	ed := newTestEditor(WithPublisher(pub))

	mustAdd(t, ed, filterA, 0)
	mustAdd(t, ed, filterC, 1)
	assert.True(t, ed.Pending())
	assert.ErrorIs(t, ed.Republish(), ErrRuntimeBusy)

	busy = false
	require.NoError(t, ed.Republish())
	assert.False(t, ed.Pending())
	require.Len(t, got, 1, "only the newest snapshot is handed over")
	assert.Equal(t, 2, got[0].Len())
	assert.NoError(t, ed.Republish(), "nothing pending")
}

func TestEvents(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	var (
		mu   sync.Mutex
		seen []string
		last event.Event
	)
	bus.SubscribeAll(event.HandlerFunc(func(_ context.Context, evt event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, evt.Type())
		last = evt
		return nil
	}))

	f := newBranchFixture(t, WithEvents(bus))
	require.NoError(t, f.ed.RemoveNode(f.s))

	change, ok := last.Data().(event.NodeChange)
	require.True(t, ok)
	assert.Equal(t, int64(f.s), change.NodeID)
	assert.Equal(t, []int64{int64(f.d)}, change.Pruned)
	assert.Equal(t, f.ed.SessionID(), last.CorrelationID())
	assert.Equal(t, "editor", last.Source())

	f.ed.Lock(true)
	f.ed.Lock(true)
	f.ed.Lock(false)
	f.ed.SelectChain(0)
	require.NoError(t, f.ed.Clear())

	want := []string{
		event.TypeNodeAdded, event.TypeNodeAdded, event.TypeNodeAdded,
		event.TypeBranchSwitched, event.TypeNodeAdded, event.TypeBranchSwitched,
		event.TypeNodeRemoved,
		event.TypeChainLocked, event.TypeChainLocked,
		event.TypeChainSelected, event.TypeChainCleared,
	}
	assert.Equal(t, want, seen)
}

func TestEvents_LockDeliveredBeforeReturn(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	var locked atomic.Bool
	bus.Subscribe([]string{event.TypeChainLocked}, event.HandlerFunc(func(_ context.Context, evt event.Event) error {
		change, ok := evt.Data().(event.ChainChange)
		if ok {
			locked.Store(change.Locked)
		}
		return nil
	}))
	ed := newTestEditor(WithEvents(bus))

	done := make(chan struct{})
	go func() {
		defer close(done)
		ed.Lock(true)
		assert.True(t, locked.Load(), "handler ran on the locking goroutine")
	}()
	<-done
	assert.True(t, ed.IsLocked())
}

func TestEvents_HandlerErrorDoesNotFailEdit(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	bus.SubscribeAll(event.HandlerFunc(func(context.Context, event.Event) error {
		return errors.New("subscriber failed")
	}))
	ed := newTestEditor(WithEvents(bus))
	_, err := ed.AddNode(filterA, 0)
	assert.NoError(t, err)
}

func TestWithFirstNodeID(t *testing.T) {
	ed := newTestEditor(WithFirstNodeID(5000))
	assert.Equal(t, NodeID(5000), mustAdd(t, ed, filterA, 0))

	ed = newTestEditor(WithFirstNodeID(-1))
	assert.Equal(t, DefaultFirstNodeID, mustAdd(t, ed, filterA, 0))
}

func TestObservability_LogsEditsAndRejections(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ed := newTestEditor(WithLogger(logger), WithMetrics(true), WithSpans(true))

	a := mustAdd(t, ed, filterA, 0)
	ed.Lock(true)
	require.ErrorIs(t, ed.RemoveNode(a), ErrChainLocked)
	ed.Lock(false)
	_, err := ed.AddNode(legacy, 1)
	require.ErrorIs(t, err, ErrUnresolved)

	var msgs []string
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		assert.Equal(t, ed.SessionID(), rec["session_id"])
		msgs = append(msgs, rec["msg"].(string))
	}
	assert.Equal(t, []string{
		"edit applied",
		"edit rejected",
		"processor unavailable, using placeholder",
		"edit applied",
	}, msgs)
}
