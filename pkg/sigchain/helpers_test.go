package sigchain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

// stubProcessor records its parameters and rejects fail=true.
type stubProcessor struct {
	p params.Set
}

func (s *stubProcessor) Configure(p params.Set) error {
	if p.Bool("fail", false) {
		return errors.New("rejected by processor")
	}
	s.p = p
	return nil
}

var (
	filterA  = Descriptor{Name: "FilterA", Library: "test", Version: "1.0", Category: "Filters"}
	filterC  = Descriptor{Name: "FilterC", Library: "test", Version: "1.0", Category: "Filters"}
	filterD  = Descriptor{Name: "FilterD", Library: "test", Version: "1.0", Category: "Filters"}
	filterE  = Descriptor{Name: "FilterE", Library: "test", Version: "1.0", Category: "Filters"}
	splitter = Descriptor{Name: "Splitter", Library: "test", Version: "1.0", Category: "Utilities"}
	merger   = Descriptor{Name: "Merger", Library: "test", Version: "1.0", Category: "Utilities"}
	recorder = Descriptor{Name: "Recorder", Library: "test", Version: "1.0", Category: "Sinks"}
	legacy   = Descriptor{Name: "LegacyAmp", Library: "vendor", Version: "1"}
)

// testResolver resolves the test descriptors by name.
func testResolver() Resolver {
	factories := map[string]Factory{}
	for _, d := range []Descriptor{filterA, filterC, filterD, filterE} {
		factories[d.Name] = Factory{
			Descriptor: d,
			Kind:       KindOrdinary,
			New:        func() Processor { return &stubProcessor{} },
			Defaults:   params.New(params.Param{Key: "gain", Value: "1"}, params.Param{Key: "mode", Value: "auto"}),
		}
	}
	factories[splitter.Name] = Factory{Descriptor: splitter, Kind: KindSplitter, New: func() Processor { return &stubProcessor{} }}
	factories[merger.Name] = Factory{Descriptor: merger, Kind: KindMerger, New: func() Processor { return &stubProcessor{} }}
	factories[recorder.Name] = Factory{Descriptor: recorder, Kind: KindUtility, New: func() Processor { return &stubProcessor{} }}

	return ResolverFunc(func(d Descriptor) (Factory, error) {
		f, ok := factories[d.Name]
		if !ok || (d.Library != "" && d.Library != f.Descriptor.Library) {
			return Factory{}, ErrUnresolved
		}
		return f, nil
	})
}

func newTestEditor(opts ...Option) *Editor {
	return NewEditor(testResolver(), opts...)
}

func mustAdd(t *testing.T, ed *Editor, d Descriptor, k int) NodeID {
	t.Helper()
	n, err := ed.AddNode(d, k)
	require.NoError(t, err)
	return n.ID()
}

func mustSerialize(t *testing.T, ed *Editor) []byte {
	t.Helper()
	data, err := ed.Serialize()
	require.NoError(t, err)
	return data
}

// branchFixture is FilterA -> Splitter{A: FilterC, B: FilterD}, path A
// active.
type branchFixture struct {
	ed         *Editor
	a, s, c, d NodeID
}

func newBranchFixture(t *testing.T, opts ...Option) branchFixture {
	t.Helper()
	ed := newTestEditor(opts...)
	f := branchFixture{ed: ed}
	f.a = mustAdd(t, ed, filterA, 0)
	f.s = mustAdd(t, ed, splitter, 1)
	f.c = mustAdd(t, ed, filterC, 2)
	require.NoError(t, ed.SwitchBranch(f.s, PathB))
	f.d = mustAdd(t, ed, filterD, 2)
	require.NoError(t, ed.SwitchBranch(f.s, PathA))
	return f
}

// diamondFixture extends branchFixture with a Merger joining both paths
// and FilterE after it: A -> S{A: C, B: D} -> M -> E.
type diamondFixture struct {
	branchFixture
	m, e NodeID
}

func newDiamondFixture(t *testing.T) diamondFixture {
	t.Helper()
	ed := newTestEditor()
	f := diamondFixture{}
	f.ed = ed
	f.a = mustAdd(t, ed, filterA, 0)
	f.s = mustAdd(t, ed, splitter, 1)
	f.c = mustAdd(t, ed, filterC, 2)
	f.m = mustAdd(t, ed, merger, 3)
	f.e = mustAdd(t, ed, filterE, 4)
	require.NoError(t, ed.SwitchBranch(f.s, PathB))
	f.d = mustAdd(t, ed, filterD, 2)
	require.NoError(t, ed.ConnectMerger(f.m, PathB, f.d))
	require.NoError(t, ed.SwitchBranch(f.s, PathA))
	return f
}
