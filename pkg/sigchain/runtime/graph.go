// Package runtime is a reference consumer of editor snapshots.
//
// A Graph accepts snapshots from the editor's control goroutine and
// installs them only at a cycle boundary, so the processing loop always
// runs against one complete snapshot. While the graph reconfigures it
// refuses new snapshots with sigchain.ErrRuntimeBusy and, if given a
// Locker, locks the editor so that no edits pile up.
//
//	rt := runtime.New(runtime.WithLogger(logger))
//	ed := sigchain.NewEditor(reg, sigchain.WithPublisher(rt))
//	rt.SetLocker(ed)
//
//	go rt.Run(ctx, 10*time.Millisecond, func(s *sigchain.Snapshot) {
//	    for _, step := range s.Steps() { ... }
//	})
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/sigchain/pkg/sigchain"
)

// Locker is implemented by sigchain.Editor.
type Locker interface {
	Lock(locked bool)
}

// Graph executes published snapshots cycle by cycle.
type Graph struct {
	staged  atomic.Pointer[sigchain.Snapshot]
	current atomic.Pointer[sigchain.Snapshot]
	cycles  atomic.Uint64

	mu            sync.Mutex
	reconfiguring bool
	locker        Locker

	logger *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) { g.logger = logger }
}

// WithLocker sets the editor locked around reconfiguration.
func WithLocker(l Locker) Option {
	return func(g *Graph) { g.locker = l }
}

// New creates a graph with no snapshot.
func New(opts ...Option) *Graph {
	g := &Graph{}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger != nil {
		g.logger = g.logger.With(slog.String("component", "runtime"))
	}
	return g
}

// SetLocker sets the editor locked around reconfiguration. It exists for
// the usual wiring order, where the editor is built after the graph.
func (g *Graph) SetLocker(l Locker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locker = l
}

// Publish implements sigchain.Publisher. The snapshot replaces any staged
// one and is installed at the start of the next cycle.
func (g *Graph) Publish(s *sigchain.Snapshot) error {
	g.mu.Lock()
	busy := g.reconfiguring
	g.mu.Unlock()
	if busy {
		return sigchain.ErrRuntimeBusy
	}
	g.staged.Store(s)
	if g.logger != nil {
		g.logger.Debug("snapshot staged",
			slog.String("snapshot_id", s.ID()),
			slog.Uint64("seq", s.Seq()),
		)
	}
	return nil
}

// BeginReconfigure refuses snapshots and locks the editor until
// EndReconfigure.
func (g *Graph) BeginReconfigure() {
	g.mu.Lock()
	g.reconfiguring = true
	l := g.locker
	g.mu.Unlock()
	if l != nil {
		l.Lock(true)
	}
}

// EndReconfigure accepts snapshots again and unlocks the editor.
func (g *Graph) EndReconfigure() {
	g.mu.Lock()
	g.reconfiguring = false
	l := g.locker
	g.mu.Unlock()
	if l != nil {
		l.Lock(false)
	}
}

// Reconfiguring reports whether snapshots are refused.
func (g *Graph) Reconfiguring() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reconfiguring
}

// Cycle installs the staged snapshot, if any, and runs fn against the
// current one. fn is not called before the first snapshot arrives.
// It reports whether a new snapshot was installed.
func (g *Graph) Cycle(fn func(*sigchain.Snapshot)) bool {
	swapped := false
	if s := g.staged.Swap(nil); s != nil {
		g.current.Store(s)
		swapped = true
		if g.logger != nil {
			g.logger.Info("snapshot installed",
				slog.String("snapshot_id", s.ID()),
				slog.Uint64("seq", s.Seq()),
				slog.Int("steps", s.Len()),
			)
		}
	}
	g.cycles.Add(1)
	if cur := g.current.Load(); cur != nil && fn != nil {
		fn(cur)
	}
	return swapped
}

// Current returns the snapshot the last cycle ran against, or nil.
func (g *Graph) Current() *sigchain.Snapshot { return g.current.Load() }

// Cycles returns the number of cycles run.
func (g *Graph) Cycles() uint64 { return g.cycles.Load() }

// Run calls Cycle every interval until ctx is done and returns ctx.Err().
func (g *Graph) Run(ctx context.Context, interval time.Duration, fn func(*sigchain.Snapshot)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.Cycle(fn)
		}
	}
}
