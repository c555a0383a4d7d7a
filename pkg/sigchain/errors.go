// Package sigchain models a branching signal chain and the protocol for
// editing, publishing and persisting it.
package sigchain

import (
	"errors"
	"fmt"
)

// Sentinel errors for editing operations.
var (
	// ErrChainLocked indicates a mutation was attempted while the chain set
	// is locked. Nothing was changed.
	ErrChainLocked = errors.New("signal chain is locked")

	// ErrNodeNotFound indicates an operation referenced an unknown node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNotBranchPoint indicates a branch operation targeted a node that is
	// neither a splitter nor a merger.
	ErrNotBranchPoint = errors.New("node is not a splitter or merger")

	// ErrInvalidPath indicates a path other than A or B.
	ErrInvalidPath = errors.New("invalid branch path")

	// ErrNotInActiveChain indicates a node is not part of the active
	// chain's visible sequence.
	ErrNotInActiveChain = errors.New("node is not in the active chain")

	// ErrBranchPointMove indicates an attempt to move a splitter or merger
	// that has both of its paths populated.
	ErrBranchPointMove = errors.New("cannot move a branch point with two live paths")

	// ErrBranchCollapse indicates a move would take the only node out of a
	// branch whose two paths rejoin at the same merger.
	ErrBranchCollapse = errors.New("move would collapse a branch")

	// ErrInvalidConnection indicates a merger input could not be connected.
	ErrInvalidConnection = errors.New("invalid merger connection")

	// ErrInvalidTopology indicates a chain set violates a structural invariant.
	ErrInvalidTopology = errors.New("invalid topology")

	// ErrEmptyClipboard indicates Paste was called with nothing copied.
	ErrEmptyClipboard = errors.New("nothing to paste")

	// ErrPlaceholder indicates an edit to the parameters or name of a
	// missing placeholder, whose record is kept exactly as loaded.
	ErrPlaceholder = errors.New("placeholder node is read-only")
)

// Sentinel errors for resolution and persistence.
var (
	// ErrUnresolved indicates the registry has no processor for a descriptor.
	ErrUnresolved = errors.New("processor type not found")

	// ErrIDCollision indicates a persisted node ID is already in use.
	ErrIDCollision = errors.New("node ID already in use")

	// ErrMalformedDocument indicates a persisted document is missing
	// required fields or is structurally inconsistent.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrUnsupportedVersion indicates a document written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported document version")
)

// Sentinel errors for runtime handoff.
var (
	// ErrRuntimeBusy indicates the runtime refused a snapshot because it is
	// reconfiguring. The publish can be retried.
	ErrRuntimeBusy = errors.New("runtime busy")
)

// ResolutionError reports a descriptor the registry could not resolve.
// The node was still created, as a missing placeholder.
type ResolutionError struct {
	// Descriptor is the unresolved processor description.
	Descriptor Descriptor
	// NodeID is the placeholder standing in for the processor.
	NodeID NodeID
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s (node %d): %v", e.Descriptor, e.NodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// CollisionError reports a persisted record rejected because its NodeID is
// already live.
type CollisionError struct {
	// ID is the colliding node ID.
	ID NodeID
	// Descriptor describes the rejected record.
	Descriptor Descriptor
}

// Error implements the error interface.
func (e *CollisionError) Error() string {
	return fmt.Sprintf("node %d (%s): %v", e.ID, e.Descriptor, ErrIDCollision)
}

// Unwrap returns ErrIDCollision for errors.Is support.
func (e *CollisionError) Unwrap() error {
	return ErrIDCollision
}

// DocumentError reports why a persisted document was rejected.
type DocumentError struct {
	// Chain is the chain index, or -1 for document-level problems.
	Chain int
	// Record is the record index within the chain, or -1.
	Record int
	// Field names the offending field, if any.
	Field string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	loc := "document"
	switch {
	case e.Chain >= 0 && e.Record >= 0:
		loc = fmt.Sprintf("chain %d record %d", e.Chain, e.Record)
	case e.Chain >= 0:
		loc = fmt.Sprintf("chain %d", e.Chain)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %v", loc, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", loc, e.Err)
}

// Unwrap returns the underlying error. ErrMalformedDocument is matched
// through Is.
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is makes every DocumentError match ErrMalformedDocument.
func (e *DocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

// NodeError wraps an error with node context.
type NodeError struct {
	// NodeID is the node the operation targeted.
	NodeID NodeID
	// Op is the operation that failed (e.g., "move", "configure").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %d: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

func malformed(chain, record int, field string, format string, args ...any) error {
	return &DocumentError{Chain: chain, Record: record, Field: field, Err: fmt.Errorf(format, args...)}
}
