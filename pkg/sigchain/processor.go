package sigchain

import "github.com/randalmurphal/sigchain/pkg/sigchain/params"

// Processor is the contract a node plugin implements. The editor never
// processes samples; it only constructs processors and hands them their
// parameter sets.
type Processor interface {
	// Configure applies a parameter set. It is called once after
	// construction with the defaults merged with any saved parameters,
	// and again whenever the parameters of the node are replaced.
	Configure(p params.Set) error
}

// Factory constructs processors of one resolved type.
type Factory struct {
	// Descriptor is the descriptor of the registered type, which may carry
	// a different version than the one requested.
	Descriptor Descriptor

	// Kind is the processor kind. Never KindMissing.
	Kind Kind

	// New constructs a processor instance.
	New func() Processor

	// Defaults is the parameter set applied to new nodes.
	Defaults params.Set
}

// Resolver resolves processor descriptors to factories.
// Implementations return an error wrapping ErrUnresolved when the type is
// not available.
type Resolver interface {
	Resolve(d Descriptor) (Factory, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(d Descriptor) (Factory, error)

// Resolve calls f(d).
func (f ResolverFunc) Resolve(d Descriptor) (Factory, error) {
	return f(d)
}
