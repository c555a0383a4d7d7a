// Package registry is the catalog of processor types an editor can
// instantiate.
//
// A Registry implements sigchain.Resolver. Types are keyed by name and
// library; several versions of one type may be registered side by side.
//
// # Basic Usage
//
//	reg := registry.New()
//	reg.MustRegister(registry.Entry{
//	    Descriptor: sigchain.Descriptor{Name: "Bandpass Filter", Library: "builtin", Version: "1.0.0", Category: "Filters"},
//	    Kind:       sigchain.KindOrdinary,
//	    New:        func() sigchain.Processor { return &Bandpass{} },
//	})
//
//	ed := sigchain.NewEditor(reg)
//
// # Resolution
//
// Resolve matches name, library and version exactly. If the exact version
// is not registered, the highest registered version of the same name and
// library is used, so documents saved against an older plugin still load.
// An empty library matches any library registering the name. Versions
// compare numerically by dot-separated component.
//
// # Catalog
//
// Catalog groups entries by category for presenting a processor list:
//
//	for _, cat := range reg.Catalog() {
//	    fmt.Println(cat.Name)
//	    for _, e := range cat.Entries {
//	        fmt.Println("  ", e.Descriptor.Name)
//	    }
//	}
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Reads take a read lock,
// so resolution during a load does not block other readers.
package registry
