package sigchain

import "fmt"

// Kind classifies a processing node. The set is closed: every structural
// operation switches over it exhaustively.
type Kind int

const (
	// KindOrdinary is a node with at most one upstream and one downstream link.
	KindOrdinary Kind = iota

	// KindSplitter has one upstream link and two downstream paths, A and B.
	KindSplitter

	// KindMerger has two upstream inputs, A and B, and one downstream link.
	KindMerger

	// KindUtility links like an ordinary node but performs housekeeping
	// (recording, monitoring) rather than transforming data.
	KindUtility

	// KindMissing is a placeholder for a type the registry could not
	// resolve. It keeps its original record verbatim.
	KindMissing
)

// String returns the persisted name of the kind.
func (k Kind) String() string {
	switch k {
	case KindOrdinary:
		return "ordinary"
	case KindSplitter:
		return "splitter"
	case KindMerger:
		return "merger"
	case KindUtility:
		return "utility"
	case KindMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// ParseKind parses a persisted kind name.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "ordinary":
		return KindOrdinary, nil
	case "splitter":
		return KindSplitter, nil
	case "merger":
		return KindMerger, nil
	case "utility":
		return KindUtility, nil
	case "missing":
		return KindMissing, nil
	}
	return 0, fmt.Errorf("unknown processor kind %q", s)
}

// IsBranchPoint returns true for splitters and mergers.
func (k Kind) IsBranchPoint() bool {
	return k == KindSplitter || k == KindMerger
}

// Path selects one of the two slots of a branch point.
type Path int

const (
	// PathA is the first slot. New branch points start with it active.
	PathA Path = 0

	// PathB is the second slot.
	PathB Path = 1
)

// String returns "A" or "B".
func (p Path) String() string {
	switch p {
	case PathA:
		return "A"
	case PathB:
		return "B"
	default:
		return fmt.Sprintf("Path(%d)", int(p))
	}
}

// Other returns the opposite path.
func (p Path) Other() Path {
	return 1 - p
}

// Valid reports whether p is PathA or PathB.
func (p Path) Valid() bool {
	return p == PathA || p == PathB
}

// ParsePath parses "A" or "B" (case-insensitive).
func ParsePath(s string) (Path, error) {
	switch s {
	case "A", "a":
		return PathA, nil
	case "B", "b":
		return PathB, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPath, s)
}
