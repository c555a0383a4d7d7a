package event

// Event types published by the editor.
const (
	TypeNodeAdded      = "node.added"
	TypeNodeRemoved    = "node.removed"
	TypeNodeMoved      = "node.moved"
	TypeNodeChanged    = "node.changed"
	TypeBranchSwitched = "branch.switched"
	TypeChainSelected  = "chain.selected"
	TypeChainCleared   = "chain.cleared"
	TypeChainLocked    = "chain.locked"
	TypeDocumentLoaded = "document.loaded"
)

// NodeChange is the payload of node.added, node.removed, node.moved and
// node.changed.
type NodeChange struct {
	NodeID     int64  `json:"node_id"`
	Chain      int    `json:"chain"`
	Index      int    `json:"index"`
	Descriptor string `json:"descriptor,omitempty"`
	// Pruned lists nodes destroyed with a removed splitter's other path.
	Pruned []int64 `json:"pruned,omitempty"`
}

// BranchChange is the payload of branch.switched.
type BranchChange struct {
	NodeID int64  `json:"node_id"`
	Path   string `json:"path"`
}

// ChainChange is the payload of chain.selected, chain.cleared and
// chain.locked. For chain.locked Chain is -1 and Count is zero.
type ChainChange struct {
	Chain  int  `json:"chain"`
	Count  int  `json:"count"`
	Locked bool `json:"locked"`
}

// DocumentChange is the payload of document.loaded.
type DocumentChange struct {
	Source    string `json:"source"`
	Chains    int    `json:"chains"`
	Nodes     int    `json:"nodes"`
	Recovered int    `json:"recovered"`
}
