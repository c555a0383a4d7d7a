package sigchain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/randalmurphal/sigchain/pkg/sigchain/observability"
)

// DocumentStore persists named documents. store.MemoryStore and
// store.SQLiteStore implement it.
type DocumentStore interface {
	Save(name string, data []byte) error
	Load(name string) ([]byte, error)
}

// SaveState writes the whole chain set to path. It returns an empty string
// on success and a status message otherwise.
func (e *Editor) SaveState(path string) string {
	data, err := e.Serialize()
	if err != nil {
		return status(path, err)
	}
	return writeFile(path, data)
}

// LoadState replaces the chain set with the document at path. It returns
// an empty string on success, including when some records were loaded as
// placeholders, and a status message otherwise. On failure nothing changes.
func (e *Editor) LoadState(path string) string {
	data, msg := readFile(path)
	if msg != "" {
		return msg
	}
	if _, err := e.loadDocument(context.Background(), "load", "file", data, true, false); err != nil {
		return status(path, err)
	}
	return ""
}

// SavePluginState writes the parameters and display name of one node to
// path as a single-record document.
func (e *Editor) SavePluginState(path string, id NodeID) string {
	n, ok := e.set.nodes[id]
	if !ok {
		return status(path, &NodeError{NodeID: id, Op: "save_plugin_state", Err: ErrNodeNotFound})
	}
	rec := n.record()
	rec.Source, rec.SourceB, rec.Dest, rec.DestB = NoNode, NoNode, NoNode, NoNode
	doc := &Document{
		Version: FormatVersion,
		Chains:  []ChainRecord{{Index: 0, Entry: id, Nodes: []NodeRecord{rec}}},
	}
	data, err := Encode(doc)
	if err != nil {
		return status(path, err)
	}
	return writeFile(path, data)
}

// LoadPluginState applies the parameters and display name stored at path
// to node id. The stored record must describe the same processor type.
func (e *Editor) LoadPluginState(path string, id NodeID) string {
	data, msg := readFile(path)
	if msg != "" {
		return msg
	}
	doc, err := Decode(data)
	if err != nil {
		return status(path, err)
	}
	if len(doc.Chains) != 1 || len(doc.Chains[0].Nodes) != 1 {
		return "could not parse " + path + ": plugin state must hold exactly one node"
	}
	rec := doc.Chains[0].Nodes[0]

	err = e.changeNode("load_plugin_state", id, func(n *Node) error {
		if rec.Name != n.desc.Name || (rec.Library != "" && n.desc.Library != "" && rec.Library != n.desc.Library) {
			return fmt.Errorf("plugin state is for %s, not %s", rec.Descriptor(), n.desc)
		}
		if err := n.reconfigure(n.params.Merge(rec.Params)); err != nil {
			return &NodeError{NodeID: id, Op: "configure", Err: err}
		}
		n.name = rec.DisplayName
		return nil
	})
	if err != nil {
		return status(path, err)
	}
	return ""
}

// SaveTo writes the chain set to st under name.
func (e *Editor) SaveTo(ctx context.Context, st DocumentStore, name string) error {
	_, span := e.spans.StartDocumentSpan(ctx, "save", name)
	data, err := e.Serialize()
	if err == nil {
		err = st.Save(name, data)
	}
	e.spans.EndSpanWithError(span, err)
	if err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	return nil
}

// LoadFrom replaces the chain set with the document st holds under name.
func (e *Editor) LoadFrom(ctx context.Context, st DocumentStore, name string) (*LoadReport, error) {
	ctx, span := e.spans.StartDocumentSpan(ctx, "load", name)
	data, err := st.Load(name)
	if err != nil {
		err = fmt.Errorf("load %q: %w", name, err)
		e.spans.EndSpanWithError(span, err)
		observability.LogLoadError(e.logger, "store", err)
		return nil, err
	}
	report, err := e.loadDocument(ctx, "load", "store", data, true, false)
	e.spans.EndSpanWithError(span, err)
	return report, err
}

func readFile(path string) ([]byte, string) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, "file not found: " + path
	case err != nil:
		return nil, "could not read file: " + err.Error()
	}
	return data, ""
}

func writeFile(path string, data []byte) string {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "could not write file: " + err.Error()
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "could not write file: " + err.Error()
	}
	return ""
}

// status turns an error into the message shown to the user.
func status(path string, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrChainLocked):
		return err.Error()
	case errors.Is(err, ErrMalformedDocument):
		return "could not parse " + path + ": " + err.Error()
	default:
		return err.Error()
	}
}
