// Package builtin provides the processor types that ship with the editor:
// the branch points and a small set of acquisition, filter and sink
// processors.
//
// Processors here only validate and hold their parameters; sample
// processing belongs to the runtime that executes a snapshot.
package builtin

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/sigchain/pkg/sigchain"
	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
	"github.com/randalmurphal/sigchain/pkg/sigchain/registry"
)

// Library is the library name of every built-in type.
const Library = "builtin"

// Version is the version of every built-in type.
const Version = "1.0.0"

// Categories of the built-in types.
const (
	CategorySources = "Sources"
	CategoryFilters = "Filters"
	CategorySinks   = "Sinks"
	CategoryUtility = "Utilities"
)

// ErrInvalidParams indicates a parameter set a processor cannot run with.
var ErrInvalidParams = errors.New("invalid parameters")

// Descriptors of the built-in types.
var (
	Splitter      = descriptor("Splitter", CategoryUtility)
	Merger        = descriptor("Merger", CategoryUtility)
	FileReader    = descriptor("File Reader", CategorySources)
	Bandpass      = descriptor("Bandpass Filter", CategoryFilters)
	CommonAvgRef  = descriptor("Common Avg Ref", CategoryFilters)
	SpikeDetector = descriptor("Spike Detector", CategoryFilters)
	LFPViewer     = descriptor("LFP Viewer", CategorySinks)
	RecordNode    = descriptor("Record Node", CategorySinks)
	AudioMonitor  = descriptor("Audio Monitor", CategorySinks)
)

func descriptor(name, category string) sigchain.Descriptor {
	return sigchain.Descriptor{Name: name, Library: Library, Version: Version, Category: category}
}

// Entries returns the registry entries of every built-in type.
func Entries() []registry.Entry {
	return []registry.Entry{
		{
			Descriptor:  Splitter,
			Kind:        sigchain.KindSplitter,
			New:         func() sigchain.Processor { return &passive{} },
			Description: "Copies its input to two paths",
		},
		{
			Descriptor:  Merger,
			Kind:        sigchain.KindMerger,
			New:         func() sigchain.Processor { return &passive{} },
			Description: "Combines two paths into one",
		},
		{
			Descriptor:  FileReader,
			Kind:        sigchain.KindOrdinary,
			New:         func() sigchain.Processor { return &FileReaderProcessor{} },
			Defaults:    params.FromMap(map[string]any{"path": "", "loop": false, "sample_rate": 30000.0}),
			Description: "Plays back a recorded session",
		},
		{
			Descriptor:  Bandpass,
			Kind:        sigchain.KindOrdinary,
			New:         func() sigchain.Processor { return &BandpassProcessor{} },
			Defaults:    params.FromMap(map[string]any{"low_cut": 300.0, "high_cut": 6000.0, "order": 2}),
			Description: "Butterworth bandpass filter",
		},
		{
			Descriptor:  CommonAvgRef,
			Kind:        sigchain.KindOrdinary,
			New:         func() sigchain.Processor { return &CommonAvgRefProcessor{} },
			Defaults:    params.New(params.Param{Key: "gain", Value: "1"}),
			Description: "Subtracts the mean of all channels",
		},
		{
			Descriptor:  SpikeDetector,
			Kind:        sigchain.KindOrdinary,
			New:         func() sigchain.Processor { return &SpikeDetectorProcessor{} },
			Defaults:    params.FromMap(map[string]any{"threshold": -50.0, "dead_time": "1ms"}),
			Description: "Threshold spike detection",
		},
		{
			Descriptor:  LFPViewer,
			Kind:        sigchain.KindOrdinary,
			New:         func() sigchain.Processor { return &ViewerProcessor{} },
			Defaults:    params.FromMap(map[string]any{"timebase": "2s", "channels": ""}),
			Description: "Scrolling trace display",
		},
		{
			Descriptor:  RecordNode,
			Kind:        sigchain.KindUtility,
			New:         func() sigchain.Processor { return &RecordProcessor{} },
			Defaults:    params.FromMap(map[string]any{"directory": "recordings", "format": "binary"}),
			Description: "Writes its input to disk",
		},
		{
			Descriptor:  AudioMonitor,
			Kind:        sigchain.KindUtility,
			New:         func() sigchain.Processor { return &AudioMonitorProcessor{} },
			Defaults:    params.FromMap(map[string]any{"channel": 0, "volume": 0.5}),
			Description: "Plays one channel through the speakers",
		},
	}
}

// Register adds every built-in type to reg.
func Register(reg *registry.Registry) error {
	for _, e := range Entries() {
		if err := reg.Register(e); err != nil {
			return fmt.Errorf("register %s: %w", e.Descriptor, err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in types.
func NewRegistry() *registry.Registry {
	reg := registry.New()
	if err := Register(reg); err != nil {
		panic("builtin: " + err.Error())
	}
	return reg
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
