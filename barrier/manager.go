package barrier

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/trace"
)

// Options configures a Coordinator.
type Options struct {
	// MaxInFlight bounds how many barriers may be in flight at once.
	MaxInFlight int
	// EnableRecovery runs a Recoverer pass at startup before the first
	// barrier is ever injected, rather than assuming a clean fleet, and
	// bridges to the Recoverer again on any later barrier failure. With it
	// false, a later failure terminates Run with the original error instead.
	EnableRecovery bool
	// CheckpointInterval, if positive, drives a periodic Plain barrier
	// whenever nothing else is scheduled by the time it fires, so the fleet
	// keeps checkpointing even with no caller ever scheduling work.
	CheckpointInterval time.Duration
}

// Coordinator is the Global Barrier Coordinator: it drains a schedule of
// Commands by injecting monotonically numbered barriers across the compute
// fleet, collecting and committing their completions strictly in order, and
// bridging to external recovery whenever a barrier fails.
//
// Distinct concerns (queue, pipeline, progress, persistence) are composed
// into a single owning type rather than threaded through as loose
// parameters, the same shape as other Service/Resolver style components in
// this codebase.
type Coordinator struct {
	opts Options

	queue    *scheduledQueue
	pipeline *pipeline
	progress *progressTracker

	storage   StorageManager
	cluster   ClusterManager
	fragment  FragmentManager
	clients   StreamClientPool
	recoverer Recoverer
	epochs    EpochStore

	currEpoch Epoch

	completions chan completion
	stopping    chan struct{}
}

// NewCoordinator constructs a Coordinator. Run must be called to drive it.
func NewCoordinator(
	opts Options,
	storage StorageManager,
	cluster ClusterManager,
	fragment FragmentManager,
	clients StreamClientPool,
	recoverer Recoverer,
	epochs EpochStore,
) *Coordinator {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 1
	}
	return &Coordinator{
		opts:        opts,
		queue:       newScheduledQueue(),
		pipeline:    newPipeline(opts.MaxInFlight),
		progress:    newProgressTracker(),
		storage:     storage,
		cluster:     cluster,
		fragment:    fragment,
		clients:     clients,
		recoverer:   recoverer,
		epochs:      epochs,
		completions: make(chan completion, 16),
		stopping:    make(chan struct{}),
	}
}

// Schedule enqueues cmd for injection at some future barrier and returns
// immediately, without waiting for any acknowledgement. Use Issue or
// RunCommand instead if the caller must observe the outcome.
func (c *Coordinator) Schedule(cmd Command) {
	c.queue.push(scheduledEntry{command: cmd})
}

// Issue enqueues cmd and blocks until it's been collected: every actor has
// acknowledged the barrier carrying it and its epoch has committed to
// storage. It does not wait for post-collect backfill to finish; use
// RunCommand for that.
func (c *Coordinator) Issue(ctx context.Context, cmd Command) error {
	var n = NewNotifier(Slots{Collected: true})
	c.queue.push(scheduledEntry{command: cmd, notifiers: []*Notifier{n}})
	select {
	case err := <-n.Collected():
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunCommand enqueues cmd and blocks until it's fully finished: collected,
// committed, and - for commands like CreateMaterializedView that carry
// post-collect backfill - until every tracked actor has reported done.
//
// A CreateMaterializedView's backfill pins a storage snapshot for its
// duration so historical data isn't reclaimed out from under the new view
// while it catches up.
func (c *Coordinator) RunCommand(ctx context.Context, cmd Command) error {
	var table, creating = cmd.creatingTable()

	var n = NewNotifier(Slots{Collected: true, Finished: true})
	c.queue.push(scheduledEntry{command: cmd, notifiers: []*Notifier{n}})

	select {
	case err := <-n.Collected():
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	if !creating {
		select {
		case err := <-n.Finished():
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var owner = table.ownerTag()
	var snapshot, err = c.storage.PinSnapshot(ctx, owner, n.Epoch())
	if err != nil {
		return errors.WithMessage(err, "pinning snapshot for materialized view backfill")
	}
	defer func() {
		if err := c.storage.UnpinSnapshot(context.Background(), owner, []SnapshotID{snapshot}); err != nil {
			log.WithError(err).Warn("failed to unpin materialized view backfill snapshot")
		}
	}()

	select {
	case err := <-n.Finished():
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitNextCollected blocks until whatever barrier is injected next has been
// collected. It's used by callers that only need a consistency checkpoint:
// it piggybacks on the entry already at the head of the queue, or, if
// nothing is scheduled, schedules a Plain barrier carrying its waiter.
func (c *Coordinator) WaitNextCollected(ctx context.Context) error {
	var n = NewNotifier(Slots{Collected: true})
	c.queue.attach(n)
	select {
	case err := <-n.Collected():
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlightCount reports how many barriers currently await collection.
func (c *Coordinator) InFlightCount() int { return c.pipeline.inFlightCount() }

// PipelineDepth reports the total number of barriers in the pipeline,
// collected or not, still awaiting commit.
func (c *Coordinator) PipelineDepth() int { return c.pipeline.depth() }

// Run drives the Coordinator until ctx is cancelled, at which point it
// aborts the queue (failing any waiters) and returns. It should be run as
// the coordinator process's sole long-lived task.
//
// Shutdown always wins over completions, which in turn win over fresh
// injections from either the queue waking up or the checkpoint interval
// ticking, the same priority service.go's QueueTasks applies: shutdown
// first, then outstanding work drains before anything new starts.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.opts.EnableRecovery {
		if err := c.recover(ctx, InvalidEpoch, nil); err != nil {
			return err
		}
	} else if prev, err := c.epochs.LoadInFlightPrevEpoch(ctx); err != nil {
		return errors.WithMessage(err, "loading persisted epoch")
	} else {
		c.currEpoch = prev
	}

	defer close(c.stopping)

	var ticker *time.Ticker
	if c.opts.CheckpointInterval > 0 {
		ticker = time.NewTicker(c.opts.CheckpointInterval)
		defer ticker.Stop()
	}

	for {
		// A nil channel blocks forever, so a case is only offered when it
		// may be taken. Go's select picks among ready cases at random, so
		// priority is imposed here: completions aren't offered once ctx is
		// done, and injection is only offered while ctx isn't done, no
		// completion is already buffered, and the pipeline currently admits
		// it. The last also avoids a busy-loop re-checking canInject on an
		// already-non-empty queue while the pipeline is full, and keeps the
		// tick from firing a barrier the pipeline has no room for either.
		var comps = c.completions
		var wake <-chan struct{}
		var tick <-chan time.Time
		if ctx.Err() != nil {
			comps = nil
		} else if len(c.completions) == 0 && c.pipeline.canInject() {
			wake = c.queue.waitNonEmpty()
			if ticker != nil {
				tick = ticker.C
			}
		}

		select {
		case <-ctx.Done():
			c.queue.abort()
			return nil

		case comp := <-comps:
			c.applyCompletion(comp)
			if err := c.tryCommitHead(ctx); err != nil {
				if err := c.recover(ctx, comp.prevEpoch, err); err != nil {
					return err
				}
			}

		case <-wake:
			if err := c.injectAndTryCommit(ctx); err != nil {
				return err
			}

		case <-tick:
			if err := c.injectAndTryCommit(ctx); err != nil {
				return err
			}
		}
	}
}

// injectAndTryCommit injects whatever's next - explicitly scheduled, or a
// synthesized periodic Plain barrier if nothing is - and tries to commit
// the pipeline head immediately afterward. That second step matters for the
// empty-topology fast path: it completes a node synchronously with no
// completion ever arriving on c.completions to trigger a commit attempt.
func (c *Coordinator) injectAndTryCommit(ctx context.Context) error {
	if err := c.injectNext(ctx); err != nil {
		return err
	}
	if err := c.tryCommitHead(ctx); err != nil {
		return c.recover(ctx, c.currEpoch, err)
	}
	return nil
}

// injectNext pops the next scheduled entry, resolves the fleet, and injects
// it as a new barrier at the pipeline tail.
func (c *Coordinator) injectNext(ctx context.Context) error {
	var entry = c.queue.popOrDefault()

	var info, err = resolveActorInfo(ctx, c.cluster, c.fragment, creatingTableOf(entry.command))
	if err != nil {
		for _, n := range entry.notifiers {
			n.notifyFailed(newError(KindInjectFailed, c.currEpoch, err, "resolve actor info"))
		}
		return nil
	}

	var prev = c.currEpoch
	var curr = prev.Next()
	c.currEpoch = curr

	var cmdCtx = newCommandContext(prev, curr, info, entry.command)
	var node = &epochNode{cmdCtx: cmdCtx, state: stateInFlight, notifiers: entry.notifiers}

	if err := c.epochs.SaveInFlightPrevEpoch(ctx, prev); err != nil {
		log.WithError(err).Warn("failed to persist in-flight prev epoch")
	}

	if info.nothingToDo() {
		addTrace(ctx, "epoch %d has nothing to inject, fast-completing", curr)
		c.pipeline.pushBack(node)
		node.state = stateComplete
		return nil
	}

	var clients = make(map[WorkerID]StreamClient, len(info.nodeMap))
	for _, w := range info.workers() {
		var client, err = c.clients.Client(ctx, w)
		if err != nil {
			for _, n := range entry.notifiers {
				n.notifyFailed(newError(KindInjectFailed, prev, err, "dial worker"))
			}
			return nil
		}
		clients[w.ID] = client
	}

	c.pipeline.pushBack(node)
	go injectAndCollect(ctx, clients, cmdCtx, c.completions)
	return nil
}

func creatingTableOf(cmd Command) *TableID {
	if table, ok := cmd.creatingTable(); ok {
		return &table
	}
	return nil
}

func (t TableID) ownerTag() string {
	return "materialized-view-backfill"
}

func addTrace(ctx context.Context, format string, args ...interface{}) {
	if tr, ok := trace.FromContext(ctx); ok {
		tr.LazyPrintf(format, args...)
	}
}
