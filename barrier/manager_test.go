package barrier

import (
	"context"
	"time"

	gc "github.com/go-check/check"
)

type ManagerSuite struct{}

// runCoordinator drives co.Run in a background goroutine. The returned
// cancel stops it and waits up to two seconds for Run to return.
func runCoordinator(c *gc.C, co *Coordinator) (cancel func()) {
	var ctx, cancelFn = context.WithCancel(context.Background())
	var done = make(chan error, 1)
	go func() { done <- co.Run(ctx) }()
	return func() {
		cancelFn()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			c.Fatal("coordinator did not stop after cancellation")
		}
	}
}

func (s *ManagerSuite) TestEmptyFleetCompletesPeriodicBarriers(c *gc.C) {
	var co = newTestCoordinator(newFakeStorage())
	var cancel = runCoordinator(c, co)
	defer cancel()

	c.Assert(co.Issue(context.Background(), Plain()), gc.IsNil)
	c.Assert(co.Issue(context.Background(), Plain()), gc.IsNil)
}

func (s *ManagerSuite) TestWaitNextCollectedPiggybacksNextBarrier(c *gc.C) {
	var co = newTestCoordinator(newFakeStorage())
	var cancel = runCoordinator(c, co)
	defer cancel()

	c.Assert(co.WaitNextCollected(context.Background()), gc.IsNil)
}

func (s *ManagerSuite) TestScheduleIsFireAndForget(c *gc.C) {
	var co = newTestCoordinator(newFakeStorage())
	var cancel = runCoordinator(c, co)
	defer cancel()

	co.Schedule(Plain())
	// Issue a second command and wait for it: by the time it's collected,
	// the scheduled one must already have drained (FIFO).
	c.Assert(co.Issue(context.Background(), Plain()), gc.IsNil)
}

func (s *ManagerSuite) TestRunCommandCreateMaterializedViewWaitsForBackfill(c *gc.C) {
	var cluster = fakeCluster{workers: []Worker{{ID: 1, Addr: "worker-1"}}}
	var fragment = fakeFragment{placement: map[ActorID]WorkerID{100: 1}}
	var client = &fakeStreamClient{}

	var co = NewCoordinator(
		Options{MaxInFlight: 4},
		newFakeStorage(),
		cluster,
		fragment,
		fakeClientPool{client: client},
		&fakeRecoverer{},
		NewMemEpochStore(),
	)
	var cancel = runCoordinator(c, co)
	defer cancel()

	var committed = make(chan struct{}, 1)
	var cmd = CreateMaterializedView(7, []ActorID{100}, func() error {
		committed <- struct{}{}
		return nil
	})

	var done = make(chan error, 1)
	go func() { done <- co.RunCommand(context.Background(), cmd) }()

	select {
	case <-committed:
	case <-time.After(2 * time.Second):
		c.Fatal("expected postCollect commit to run")
	}

	// Backfill hasn't completed yet: RunCommand must still be blocked.
	select {
	case <-done:
		c.Fatal("RunCommand must not return before backfill finishes")
	case <-time.After(50 * time.Millisecond):
	}

	co.progress.update(Progress{TableID: 7, Actor: 100, Done: true})

	select {
	case err := <-done:
		c.Check(err, gc.IsNil)
	case <-time.After(2 * time.Second):
		c.Fatal("expected RunCommand to return once backfill completes")
	}
}

func (s *ManagerSuite) TestFreshCoordinatorHasEmptyPipeline(c *gc.C) {
	var co = newTestCoordinator(newFakeStorage())
	c.Check(co.InFlightCount(), gc.Equals, 0)
	c.Check(co.PipelineDepth(), gc.Equals, 0)
}

// With nothing ever scheduled or explicitly waited on, only the checkpoint
// interval ticking can explain barriers completing on their own.
func (s *ManagerSuite) TestCheckpointIntervalDrivesUnattendedBarriers(c *gc.C) {
	var storage = newFakeStorage()
	var co = NewCoordinator(
		Options{MaxInFlight: 4, CheckpointInterval: 5 * time.Millisecond},
		storage,
		fakeCluster{},
		fakeFragment{},
		fakeClientPool{client: &fakeStreamClient{}},
		&fakeRecoverer{},
		NewMemEpochStore(),
	)
	var cancel = runCoordinator(c, co)
	defer cancel()

	var deadline = time.After(2 * time.Second)
	for {
		storage.mu.Lock()
		var n = len(storage.committed)
		storage.mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			c.Fatal("expected checkpoint interval to drive barriers without any caller action")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

var _ = gc.Suite(&ManagerSuite{})
