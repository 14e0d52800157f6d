// Package graph implements the graph mutator: node/link/connector
// creation, cascading erase, type and endpoint queries, and link
// content, wired atop the address/segment/element/monitor/event/fsmem
// packages.
package graph

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sc-machine-go/scmem/event"
	"github.com/sc-machine-go/scmem/fsmem"
	"github.com/sc-machine-go/scmem/internal/logging"
	"github.com/sc-machine-go/scmem/internal/metrics"
	"github.com/sc-machine-go/scmem/internal/monitor"
	"github.com/sc-machine-go/scmem/internal/segment"
	"github.com/sc-machine-go/scmem/internal/workqueue"
)

var log = logging.Module("scmem/graph")

// Options configures a Store. The zero value is usable: it creates an
// in-memory-only store with no segment ceiling.
type Options struct {
	// MaxSegments bounds the segment pool; <= 0 means unbounded.
	MaxSegments int

	// MonitorTableSize is the address-monitor bank width; <= 0 uses
	// monitor.DefaultSize.
	MonitorTableSize int

	// DispatchWorkers sizes the default emission-manager worker pool;
	// <= 0 means 1.
	DispatchWorkers int

	// Collaborator is the FS-memory persistence/search backend. Nil
	// defaults to fsmem.NewMemory().
	Collaborator fsmem.Collaborator

	// Clear, if true, skips calling Collaborator.Load() on startup.
	Clear bool

	// Metrics, if non-nil, is used instead of a private registry.
	Metrics *metrics.Store
}

// Store is the concurrent in-memory semantic-graph store.
type Store struct {
	pool       *segment.Pool
	alloc      *segment.Allocator
	monitors   *monitor.Table
	fsm        fsmem.Collaborator
	events     *event.Registry
	workq      *workqueue.Manager
	metrics    *metrics.Store
	defaultPID segment.ProcessID
}

// New builds a Store per opts and, unless opts.Clear is set, loads any
// existing snapshot from the collaborator.
func New(ctx context.Context, opts Options) (*Store, error) {
	collab := opts.Collaborator
	if collab == nil {
		collab = fsmem.NewMemory()
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.NewForTesting()
	}

	if err := collab.Initialize(fsmem.Params{
		MaxLoadedSegments: opts.MaxSegments,
		Clear:             opts.Clear,
	}); err != nil {
		return nil, errors.Wrap(err, "initialize FS-memory collaborator")
	}

	pool := segment.NewPool(opts.MaxSegments)
	alloc := segment.NewAllocator(pool)
	workq := workqueue.New(opts.DispatchWorkers, m)

	s := &Store{
		pool:     pool,
		alloc:    alloc,
		monitors: monitor.New(opts.MonitorTableSize),
		fsm:      collab,
		events:   event.NewRegistry(workq, m),
		workq:    workq,
		metrics:  m,
	}
	s.defaultPID = alloc.BeginProcess()

	if !opts.Clear {
		snap, err := collab.Load()
		if err != nil {
			return nil, errors.Wrap(err, "load snapshot")
		}

		if len(snap.Segments) > 0 {
			if err := pool.Restore(snap.Segments); err != nil {
				return nil, errors.Wrap(err, "restore segment pool")
			}
		}
	}

	log.Debugw("store created", "max_segments", opts.MaxSegments)

	return s, nil
}

// BeginProcess binds a fresh per-caller allocation bias. Use it when a
// goroutine will perform many creates and should get its own filling
// segment; pass the returned id to WithProcess.
func (s *Store) BeginProcess() segment.ProcessID {
	return s.alloc.BeginProcess()
}

// EndProcess releases a process binding obtained from BeginProcess.
func (s *Store) EndProcess(pid segment.ProcessID) {
	s.alloc.EndProcess(pid)
}

// Events exposes the event registry for Subscribe/Destroy calls.
func (s *Store) Events() *event.Registry { return s.events }

// Drain blocks until every event emitted so far has been delivered or
// reclaimed.
func (s *Store) Drain() { s.workq.Drain() }

// Close drains pending dispatch, shuts down the worker pool and the
// FS-memory collaborator.
func (s *Store) Close() error {
	s.workq.Drain()
	s.workq.Stop()

	return s.fsm.Shutdown()
}

// Load re-reads whatever snapshot the FS-memory collaborator currently
// holds and restores its segments into the pool, the same step New
// performs at startup. Segments are not merged: the restore succeeds
// only while the pool has no segments, and if the snapshot holds
// segments and the pool already has any, Load returns an error wrapping
// ErrIO and leaves the pool unchanged. An empty snapshot is a no-op. It
// does not itself quiesce concurrent mutators.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.fsm.Load()
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}

	if len(snap.Segments) > 0 {
		if err := s.pool.Restore(snap.Segments); err != nil {
			return errors.Wrap(ErrIO, err.Error())
		}
	}

	return nil
}

// Save snapshots every segment and hands the result to the FS-memory
// collaborator. It does not itself quiesce concurrent
// mutators; callers wanting a consistent point-in-time snapshot must
// arrange that externally.
func (s *Store) Save(ctx context.Context) error {
	blobs, err := s.pool.Snapshot()
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}

	if err := s.fsm.Save(fsmem.Snapshot{Segments: blobs}); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}

	return nil
}

type processKey struct{}

// WithProcess attaches pid to ctx so mutator calls made with that
// context use pid's segment binding instead of the store's default
// process.
func WithProcess(ctx context.Context, pid segment.ProcessID) context.Context {
	return context.WithValue(ctx, processKey{}, pid)
}

func (s *Store) pidFrom(ctx context.Context) segment.ProcessID {
	if pid, ok := ctx.Value(processKey{}).(segment.ProcessID); ok {
		return pid
	}

	return s.defaultPID
}
