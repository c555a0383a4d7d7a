package builtin

import (
	"time"

	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

// passive is the processor of the branch points. It takes no parameters.
type passive struct{}

func (passive) Configure(params.Set) error { return nil }

// FileReaderProcessor plays back a recorded session. An empty path is
// allowed until a file is chosen.
type FileReaderProcessor struct {
	Path       string
	Loop       bool
	SampleRate float64
}

// Configure implements sigchain.Processor.
func (p *FileReaderProcessor) Configure(ps params.Set) error {
	rate := ps.Float("sample_rate", 30000)
	if rate <= 0 {
		return invalid("sample_rate must be positive, got %g", rate)
	}
	p.Path = ps.String("path", "")
	p.Loop = ps.Bool("loop", false)
	p.SampleRate = rate
	return nil
}

// BandpassProcessor passes frequencies between LowCut and HighCut.
type BandpassProcessor struct {
	LowCut  float64
	HighCut float64
	Order   int
}

// Configure implements sigchain.Processor.
func (p *BandpassProcessor) Configure(ps params.Set) error {
	low := ps.Float("low_cut", 300)
	high := ps.Float("high_cut", 6000)
	order := ps.Int("order", 2)
	switch {
	case low < 0:
		return invalid("low_cut must not be negative, got %g", low)
	case low >= high:
		return invalid("low_cut %g must be below high_cut %g", low, high)
	case order < 1 || order > 8:
		return invalid("order must be between 1 and 8, got %d", order)
	}
	p.LowCut, p.HighCut, p.Order = low, high, order
	return nil
}

// CommonAvgRefProcessor subtracts the scaled channel mean from every
// channel.
type CommonAvgRefProcessor struct {
	Gain float64
}

// Configure implements sigchain.Processor.
func (p *CommonAvgRefProcessor) Configure(ps params.Set) error {
	gain := ps.Float("gain", 1)
	if gain < 0 || gain > 1 {
		return invalid("gain must be between 0 and 1, got %g", gain)
	}
	p.Gain = gain
	return nil
}

// SpikeDetectorProcessor detects threshold crossings.
type SpikeDetectorProcessor struct {
	Threshold float64
	DeadTime  time.Duration
}

// Configure implements sigchain.Processor.
func (p *SpikeDetectorProcessor) Configure(ps params.Set) error {
	dead := ps.Duration("dead_time", time.Millisecond)
	if dead < 0 {
		return invalid("dead_time must not be negative, got %s", dead)
	}
	p.Threshold = ps.Float("threshold", -50)
	p.DeadTime = dead
	return nil
}

// ViewerProcessor displays traces of the selected channels. No channels
// means all of them.
type ViewerProcessor struct {
	Timebase time.Duration
	Channels []string
}

// Configure implements sigchain.Processor.
func (p *ViewerProcessor) Configure(ps params.Set) error {
	tb := ps.Duration("timebase", 2*time.Second)
	if tb <= 0 {
		return invalid("timebase must be positive, got %s", tb)
	}
	p.Timebase = tb
	p.Channels = ps.StringSlice("channels", nil)
	return nil
}

// RecordProcessor writes its input to Directory.
type RecordProcessor struct {
	Directory string
	Format    string
}

// Configure implements sigchain.Processor.
func (p *RecordProcessor) Configure(ps params.Set) error {
	dir := ps.String("directory", "recordings")
	format := ps.String("format", "binary")
	if dir == "" {
		return invalid("directory is required")
	}
	switch format {
	case "binary", "nwb", "openephys":
	default:
		return invalid("unknown format %q", format)
	}
	p.Directory, p.Format = dir, format
	return nil
}

// AudioMonitorProcessor plays one channel through the speakers.
type AudioMonitorProcessor struct {
	Channel int
	Volume  float64
}

// Configure implements sigchain.Processor.
func (p *AudioMonitorProcessor) Configure(ps params.Set) error {
	ch := ps.Int("channel", 0)
	vol := ps.Float("volume", 0.5)
	switch {
	case ch < 0:
		return invalid("channel must not be negative, got %d", ch)
	case vol < 0 || vol > 1:
		return invalid("volume must be between 0 and 1, got %g", vol)
	}
	p.Channel, p.Volume = ch, vol
	return nil
}
