package sigchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linked builds a chain set from nodes whose links are already set.
func linked(active int, entries []NodeID, nodes ...*Node) *ChainSet {
	cs := NewChainSet()
	for _, n := range nodes {
		cs.nodes[n.id] = n
	}
	cs.chains = entries
	cs.active = active
	return cs
}

func ordinary(id, src, dst NodeID) *Node {
	return &Node{id: id, kind: KindOrdinary, shape: KindOrdinary, sources: [2]NodeID{src}, dests: [2]NodeID{dst}}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		set     *ChainSet
		wantErr string
	}{
		{
			name: "empty",
			set:  NewChainSet(),
		},
		{
			name: "linear",
			set:  linked(0, []NodeID{1}, ordinary(1, 0, 2), ordinary(2, 1, 0)),
		},
		{
			name:    "missing entry",
			set:     linked(0, []NodeID{9}, ordinary(1, 0, 0)),
			wantErr: "chain 0 entry 9 does not exist",
		},
		{
			name:    "entry with upstream link",
			set:     linked(0, []NodeID{2}, ordinary(1, 0, 2), ordinary(2, 1, 0)),
			wantErr: "chain 0 entry 2 has an upstream link",
		},
		{
			name:    "unmirrored output",
			set:     linked(0, []NodeID{1}, ordinary(1, 0, 2), ordinary(2, 0, 0)),
			wantErr: "node 1 output A to 2 is not mirrored",
		},
		{
			name:    "dangling link",
			set:     linked(0, []NodeID{1}, ordinary(1, 0, 7)),
			wantErr: "node 1 output A references missing node 7",
		},
		{
			name: "ordinary fan-out",
			set: linked(0, []NodeID{1},
				&Node{id: 1, shape: KindOrdinary, dests: [2]NodeID{2, 3}},
				ordinary(2, 1, 0), ordinary(3, 1, 0)),
			wantErr: "ordinary node 1 uses output B",
		},
		{
			name: "splitter to one node twice",
			set: linked(0, []NodeID{1},
				&Node{id: 1, kind: KindSplitter, shape: KindSplitter, dests: [2]NodeID{2, 2}},
				ordinary(2, 1, 0)),
			wantErr: "splitter 1 sends both paths to node 2",
		},
		{
			name:    "unreachable",
			set:     linked(0, []NodeID{1}, ordinary(1, 0, 0), ordinary(2, 0, 0)),
			wantErr: "node 2 is not reachable from any chain entry",
		},
		{
			name:    "shared node",
			set:     linked(0, []NodeID{1, 1}, ordinary(1, 0, 0)),
			wantErr: "node 1 is the entry of more than one chain",
		},
		{
			name: "cycle",
			set: linked(0, []NodeID{1},
				ordinary(1, 0, 2),
				&Node{id: 2, kind: KindMerger, shape: KindMerger, sources: [2]NodeID{1, 3}, dests: [2]NodeID{3}},
				ordinary(3, 2, 2)),
			wantErr: "chain 0 contains a cycle",
		},
		{
			name:    "active out of range",
			set:     linked(3, []NodeID{1}, ordinary(1, 0, 0)),
			wantErr: "active chain 3 out of range",
		},
		{
			name: "invalid active path",
			set: linked(0, []NodeID{1},
				&Node{id: 1, kind: KindSplitter, shape: KindSplitter, active: Path(4)}),
			wantErr: "node 1 has invalid active path 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTopology)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_EditorStaysValid(t *testing.T) {
	f := newDiamondFixture(t)
	require.NoError(t, f.ed.ChainSet().Validate())

	set := f.ed.ChainSet()
	chain, ok := set.Chain(0)
	require.True(t, ok)
	assert.Equal(t, []NodeID{f.a, f.s, f.c, f.m, f.e, f.d}, chain.Members)
	assert.Equal(t, []NodeID{f.a, f.s, f.c, f.m, f.e}, chain.Sequence)
	assert.Equal(t, 0, set.ChainOf(f.d))
	assert.Equal(t, -1, set.ChainOf(999))
}
