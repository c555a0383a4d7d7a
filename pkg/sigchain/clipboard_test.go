package sigchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

func TestCopyPaste(t *testing.T) {
	f := newBranchFixture(t)
	require.NoError(t, f.ed.Rename(f.a, "Lead"))
	require.NoError(t, f.ed.SetParameters(f.c, params.FromMap(map[string]any{"gain": 3})))

	assert.False(t, f.ed.CanPaste())
	require.NoError(t, f.ed.Copy([]NodeID{f.c, f.a, f.d}), "D is not visible and is skipped")
	assert.True(t, f.ed.CanPaste())

	pasted, err := f.ed.Paste(99)
	require.NoError(t, err)
	require.Len(t, pasted, 2)
	assert.Equal(t, []NodeID{f.a, f.s, f.c, pasted[0], pasted[1]}, f.ed.Sequence())

	first, _ := f.ed.Node(pasted[0])
	assert.Equal(t, "Lead", first.Name())
	assert.Equal(t, filterA, first.Descriptor())
	second, _ := f.ed.Node(pasted[1])
	assert.Equal(t, 3, second.Params().Int("gain", 0))
	assert.NotNil(t, second.Processor())

	// The clipboard is reusable.
	again, err := f.ed.Paste(0)
	require.NoError(t, err)
	assert.Equal(t, again, f.ed.Sequence()[:2])
	assert.NotEqual(t, pasted, again)
	require.NoError(t, f.ed.ChainSet().Validate())
}

func TestCopy_NothingVisible(t *testing.T) {
	f := newBranchFixture(t)
	err := f.ed.Copy([]NodeID{f.d, 999})
	assert.ErrorIs(t, err, ErrNotInActiveChain)
	assert.False(t, f.ed.CanPaste())
}

func TestPaste_Empty(t *testing.T) {
	ed := newTestEditor()
	_, err := ed.Paste(0)
	assert.ErrorIs(t, err, ErrEmptyClipboard)
}

func TestPaste_IntoEmptyEditor(t *testing.T) {
	f := newBranchFixture(t)
	require.NoError(t, f.ed.Copy([]NodeID{f.a, f.c}))
	require.NoError(t, f.ed.Clear())

	pasted, err := f.ed.Paste(0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.ed.ChainCount())
	assert.Equal(t, 0, f.ed.ActiveChain())
	assert.Equal(t, pasted, f.ed.Sequence())
}

func TestCopy_WhileLocked(t *testing.T) {
	f := newBranchFixture(t)
	f.ed.Lock(true)
	require.NoError(t, f.ed.Copy([]NodeID{f.a}))

	_, err := f.ed.Paste(0)
	assert.ErrorIs(t, err, ErrChainLocked)
	assert.Len(t, f.ed.Nodes(), 4)

	f.ed.Lock(false)
	_, err = f.ed.Paste(0)
	require.NoError(t, err)
	assert.Len(t, f.ed.Nodes(), 5)
}

func TestPaste_Placeholder(t *testing.T) {
	ed := newTestEditor()
	_, err := ed.Load([]byte(legacyDoc))
	require.NoError(t, err)
	require.NoError(t, ed.Copy([]NodeID{101}))

	pasted, err := ed.Paste(0)
	assert.ErrorIs(t, err, ErrUnresolved, "the paste applies and reports the placeholder")
	require.Len(t, pasted, 1)
	assert.Equal(t, []NodeID{pasted[0], 100, 101, 102}, ed.Sequence())

	n, _ := ed.Node(pasted[0])
	assert.Equal(t, KindMissing, n.Kind())
	assert.Contains(t, string(mustSerialize(t, ed)), "calibration: [1, 2, 3]")
}
