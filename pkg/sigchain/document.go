package sigchain

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

// FormatVersion is the document format written by Encode. Documents with a
// higher version are rejected with ErrUnsupportedVersion.
const FormatVersion = 1

// Document is the persisted description of a chain set.
//
// Example:
//
//	version: 1
//	active_chain: 0
//	chains:
//	  - index: 0
//	    entry: 100
//	    nodes:
//	      - id: 100
//	        name: File Reader
//	        library: builtin
//	        version: 1.0.0
//	        kind: ordinary
//	        dest: 101
//	        params:
//	          path: session.dat
type Document struct {
	Version     int           `yaml:"version" json:"version"`
	ActiveChain int           `yaml:"active_chain" json:"active_chain"`
	Chains      []ChainRecord `yaml:"chains" json:"chains"`
}

// ChainRecord is one chain of a Document. Nodes are listed depth-first
// from the entry, path A before path B.
type ChainRecord struct {
	Index int          `yaml:"index" json:"index"`
	Entry NodeID       `yaml:"entry" json:"entry"`
	Nodes []NodeRecord `yaml:"nodes" json:"nodes"`
}

// NodeRecord is one node of a ChainRecord. Zero links are omitted.
//
// A record decoded from YAML keeps its original mapping. If the node could
// not be resolved it is written back from that mapping, with only the ID
// and link keys updated, so unknown fields, comments and formatting
// survive a load and save without the processor installed.
type NodeRecord struct {
	ID          NodeID     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Library     string     `yaml:"library,omitempty" json:"library,omitempty"`
	Version     string     `yaml:"version,omitempty" json:"version,omitempty"`
	Category    string     `yaml:"category,omitempty" json:"category,omitempty"`
	Kind        string     `yaml:"kind" json:"kind"`
	DisplayName string     `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Source      NodeID     `yaml:"source,omitempty" json:"source,omitempty"`
	SourceB     NodeID     `yaml:"source_b,omitempty" json:"source_b,omitempty"`
	Dest        NodeID     `yaml:"dest,omitempty" json:"dest,omitempty"`
	DestB       NodeID     `yaml:"dest_b,omitempty" json:"dest_b,omitempty"`
	ActivePath  string     `yaml:"active_path,omitempty" json:"active_path,omitempty"`
	Params      params.Set `yaml:"params,omitempty" json:"-"`

	raw *yaml.Node
}

// plainRecord has the fields of NodeRecord without its YAML methods.
type plainRecord NodeRecord

// Descriptor returns the processor description of the record.
func (r NodeRecord) Descriptor() Descriptor {
	return Descriptor{Name: r.Name, Library: r.Library, Version: r.Version, Category: r.Category}
}

// Raw returns a copy of the mapping the record was decoded from, or nil.
func (r NodeRecord) Raw() *yaml.Node {
	if r.raw == nil {
		return nil
	}
	return cloneNode(r.raw)
}

// UnmarshalYAML decodes the record and keeps its mapping.
func (r *NodeRecord) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: node record must be a mapping", value.Line)
	}
	var p plainRecord
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = NodeRecord(p)
	r.raw = cloneNode(value)
	return nil
}

// MarshalYAML writes the kept mapping with current IDs and links if there
// is one, and the record fields otherwise.
func (r NodeRecord) MarshalYAML() (any, error) {
	if r.raw == nil {
		return plainRecord(r), nil
	}
	m := cloneNode(r.raw)
	patchID(m, "id", r.ID, true)
	patchID(m, "source", r.Source, false)
	patchID(m, "source_b", r.SourceB, false)
	patchID(m, "dest", r.Dest, false)
	patchID(m, "dest_b", r.DestB, false)
	patchPath(m, r.ActivePath)
	return m, nil
}

// Encode writes a document as YAML.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a YAML or JSON document and checks that it is complete:
// a supported version, and for every record an ID, a name, a known kind
// and links that stay inside its chain. The topology itself is checked
// when the document is built into a chain set.
func Decode(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, malformed(-1, -1, "", "empty document")
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &DocumentError{Chain: -1, Record: -1, Err: err}
	}
	if err := doc.check(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// check reports the first reason the document cannot be loaded.
func (doc *Document) check() error {
	switch {
	case doc.Version <= 0:
		return malformed(-1, -1, "version", "missing or invalid format version %d", doc.Version)
	case doc.Version > FormatVersion:
		return &DocumentError{Chain: -1, Record: -1, Field: "version",
			Err: fmt.Errorf("%w: %d (newest supported is %d)", ErrUnsupportedVersion, doc.Version, FormatVersion)}
	}

	seen := make(map[NodeID]int)
	for ci, ch := range doc.Chains {
		if len(ch.Nodes) == 0 {
			return malformed(ci, -1, "nodes", "chain has no nodes")
		}
		local := make(map[NodeID]bool, len(ch.Nodes))
		for ri, rec := range ch.Nodes {
			switch {
			case rec.ID <= 0:
				return malformed(ci, ri, "id", "missing or invalid node ID %d", rec.ID)
			case rec.Name == "":
				return malformed(ci, ri, "name", "missing processor name")
			}
			if prev, dup := seen[rec.ID]; dup {
				return malformed(ci, ri, "id", "node ID %d already used in chain %d", rec.ID, prev)
			}
			seen[rec.ID] = ci
			local[rec.ID] = true

			if _, err := ParseKind(rec.Kind); err != nil {
				return malformed(ci, ri, "kind", "%v", err)
			}
			if rec.ActivePath != "" {
				if _, err := ParsePath(rec.ActivePath); err != nil {
					return malformed(ci, ri, "active_path", "%v", err)
				}
			}
		}

		if !local[ch.Entry] {
			return malformed(ci, -1, "entry", "entry %d is not a node of the chain", ch.Entry)
		}
		for ri, rec := range ch.Nodes {
			for field, link := range map[string]NodeID{
				"source": rec.Source, "source_b": rec.SourceB, "dest": rec.Dest, "dest_b": rec.DestB,
			} {
				if link != NoNode && !local[link] {
					return malformed(ci, ri, field, "link to %d leaves the chain", link)
				}
			}
		}
	}
	return nil
}

// record builds the persisted record of n with its current links.
func (n *Node) record() NodeRecord {
	rec := NodeRecord{
		ID:          n.id,
		Name:        n.desc.Name,
		Library:     n.desc.Library,
		Version:     n.desc.Version,
		Category:    n.desc.Category,
		Kind:        n.kind.String(),
		DisplayName: n.name,
		Source:      n.sources[PathA],
		SourceB:     n.sources[PathB],
		Dest:        n.dests[PathA],
		DestB:       n.dests[PathB],
		Params:      n.params,
		raw:         n.raw,
	}
	if n.kind == KindMissing {
		// Written back as what it was recorded as.
		rec.Kind = n.shape.String()
	}
	if n.shape.IsBranchPoint() {
		rec.ActivePath = n.active.String()
	}
	return rec
}

// Document returns the persisted description of the chain set.
func (cs *ChainSet) Document() *Document {
	doc := &Document{
		Version:     FormatVersion,
		ActiveChain: max(cs.Active(), 0),
		Chains:      make([]ChainRecord, len(cs.chains)),
	}
	for ci, entry := range cs.chains {
		members := cs.members(entry)
		ch := ChainRecord{Index: ci, Entry: entry, Nodes: make([]NodeRecord, len(members))}
		for i, id := range members {
			ch.Nodes[i] = cs.nodes[id].record()
		}
		doc.Chains[ci] = ch
	}
	return doc
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	c.Alias = cloneNode(n.Alias)
	return &c
}

// keyIndex returns the index of the value node for key in mapping m, or -1.
func keyIndex(m *yaml.Node, key string) int {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i + 1
		}
	}
	return -1
}

// setScalar sets key to value in mapping m. An existing value node that
// already means the same thing is left untouched; an empty value removes
// the key unless keep is set.
func setScalar(m *yaml.Node, key, value, tag string, keep bool, same func(old string) bool) {
	i := keyIndex(m, key)
	if i >= 0 {
		old := m.Content[i]
		if old.Kind == yaml.ScalarNode && same(old.Value) {
			return
		}
		if value == "" && !keep {
			m.Content = append(m.Content[:i-1], m.Content[i+1:]...)
			return
		}
		m.Content[i] = &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
		return
	}
	if value == "" && !keep {
		return
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value},
	)
}

func patchID(m *yaml.Node, key string, id NodeID, keep bool) {
	value := ""
	if id != NoNode || keep {
		value = strconv.FormatInt(int64(id), 10)
	}
	setScalar(m, key, value, "!!int", keep, func(old string) bool {
		if old == "" || old == "~" || old == "null" {
			return id == NoNode
		}
		v, err := strconv.ParseInt(old, 10, 64)
		return err == nil && NodeID(v) == id
	})
}

func patchPath(m *yaml.Node, path string) {
	setScalar(m, "active_path", path, "!!str", false, func(old string) bool {
		return strings.EqualFold(old, path)
	})
}
