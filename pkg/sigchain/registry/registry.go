package registry

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/randalmurphal/sigchain/pkg/sigchain"
	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

// ErrInvalidEntry indicates an entry without a name or constructor, or
// with a kind that cannot be instantiated.
var ErrInvalidEntry = errors.New("invalid registry entry")

// Uncategorized is the category of entries registered without one.
const Uncategorized = "Other"

// Entry describes one processor type.
type Entry struct {
	// Descriptor identifies the type. Name is required.
	Descriptor sigchain.Descriptor
	// Kind is the processor kind. KindMissing is not allowed.
	Kind sigchain.Kind
	// New constructs a processor. Required.
	New func() sigchain.Processor
	// Defaults is the parameter set applied to new nodes.
	Defaults params.Set
	// Description is shown in the processor list.
	Description string
}

// Factory returns the factory the editor uses to build nodes of e.
func (e Entry) Factory() sigchain.Factory {
	return sigchain.Factory{Descriptor: e.Descriptor, Kind: e.Kind, New: e.New, Defaults: e.Defaults}
}

// Category is one group of the catalog.
type Category struct {
	Name    string
	Entries []Entry
}

type key struct {
	name    string
	library string
}

// Registry is a thread-safe catalog of processor types.
type Registry struct {
	mu sync.RWMutex
	// Versions of each type, ascending.
	entries map[key][]Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[key][]Entry)}
}

// Register adds a type, replacing an entry with the same name, library and
// version.
func (r *Registry) Register(e Entry) error {
	switch {
	case e.Descriptor.Name == "":
		return fmt.Errorf("%w: missing name", ErrInvalidEntry)
	case e.New == nil:
		return fmt.Errorf("%w: %s has no constructor", ErrInvalidEntry, e.Descriptor)
	case e.Kind == sigchain.KindMissing:
		return fmt.Errorf("%w: %s cannot be registered as %s", ErrInvalidEntry, e.Descriptor, e.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{e.Descriptor.Name, e.Descriptor.Library}
	versions := r.entries[k]
	i, found := slices.BinarySearchFunc(versions, e.Descriptor.Version, func(x Entry, v string) int {
		return CompareVersions(x.Descriptor.Version, v)
	})
	if found {
		versions[i] = e
	} else {
		versions = slices.Insert(versions, i, e)
	}
	r.entries[k] = versions
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(e Entry) {
	if err := r.Register(e); err != nil {
		panic("registry: " + err.Error())
	}
}

// Resolve implements sigchain.Resolver.
func (r *Registry) Resolve(d sigchain.Descriptor) (sigchain.Factory, error) {
	e, ok := r.Lookup(d)
	if !ok {
		return sigchain.Factory{}, fmt.Errorf("%w: %s", sigchain.ErrUnresolved, d)
	}
	return e.Factory(), nil
}

// Lookup returns the entry Resolve would use for d.
func (r *Registry) Lookup(d sigchain.Descriptor) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.versions(d)
	if len(versions) == 0 {
		return Entry{}, false
	}
	for _, e := range versions {
		if e.Descriptor.Version == d.Version {
			return e, true
		}
	}
	return versions[len(versions)-1], true
}

// versions returns the registered versions of d's type. Callers hold mu.
func (r *Registry) versions(d sigchain.Descriptor) []Entry {
	if d.Library != "" {
		return r.entries[key{d.Name, d.Library}]
	}
	var libs []string
	for k := range r.entries {
		if k.name == d.Name {
			libs = append(libs, k.library)
		}
	}
	if len(libs) == 0 {
		return nil
	}
	slices.Sort(libs)
	return r.entries[key{d.Name, libs[0]}]
}

// Has reports whether exactly d is registered, version included.
func (r *Registry) Has(d sigchain.Descriptor) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.ContainsFunc(r.entries[key{d.Name, d.Library}], func(e Entry) bool {
		return e.Descriptor.Version == d.Version
	})
}

// Unregister removes exactly d and reports whether it was registered.
func (r *Registry) Unregister(d sigchain.Descriptor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{d.Name, d.Library}
	versions := r.entries[k]
	i := slices.IndexFunc(versions, func(e Entry) bool { return e.Descriptor.Version == d.Version })
	if i < 0 {
		return false
	}
	versions = slices.Delete(versions, i, i+1)
	if len(versions) == 0 {
		delete(r.entries, k)
	} else {
		r.entries[k] = versions
	}
	return true
}

// Entries returns every entry sorted by category, name, library and
// version.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, versions := range r.entries {
		out = append(out, versions...)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int {
		if c := strings.Compare(category(a), category(b)); c != 0 {
			return c
		}
		if c := strings.Compare(a.Descriptor.Name, b.Descriptor.Name); c != 0 {
			return c
		}
		if c := strings.Compare(a.Descriptor.Library, b.Descriptor.Library); c != 0 {
			return c
		}
		return CompareVersions(a.Descriptor.Version, b.Descriptor.Version)
	})
	return out
}

// Catalog returns the newest version of every type, grouped by category.
// Categories and the entries within them are sorted by name.
func (r *Registry) Catalog() []Category {
	var cats []Category
	for _, e := range r.Entries() {
		if !r.isNewest(e) {
			continue
		}
		name := category(e)
		if len(cats) == 0 || cats[len(cats)-1].Name != name {
			cats = append(cats, Category{Name: name})
		}
		last := &cats[len(cats)-1]
		last.Entries = append(last.Entries, e)
	}
	return cats
}

func (r *Registry) isNewest(e Entry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.entries[key{e.Descriptor.Name, e.Descriptor.Library}]
	return len(versions) > 0 && versions[len(versions)-1].Descriptor.Version == e.Descriptor.Version
}

// Len returns the number of registered entries, counting every version.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, versions := range r.entries {
		n += len(versions)
	}
	return n
}

func category(e Entry) string {
	if e.Descriptor.Category == "" {
		return Uncategorized
	}
	return e.Descriptor.Category
}

// CompareVersions compares dot-separated versions component by component.
// Numeric components compare as numbers, others as strings, and a missing
// component sorts first: "1.2" < "1.2.0" < "1.10".
func CompareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	if a == "" {
		as = nil
	}
	if b == "" {
		bs = nil
	}
	for i := 0; i < len(as) && i < len(bs); i++ {
		x, xerr := strconv.Atoi(as[i])
		y, yerr := strconv.Atoi(bs[i])
		var c int
		if xerr == nil && yerr == nil {
			c = x - y
		} else {
			c = strings.Compare(as[i], bs[i])
		}
		if c != 0 {
			if c < 0 {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}
