package barrier

import (
	"context"
	"time"

	gc "github.com/go-check/check"
)

type IntegrationSuite struct{}

func (s *IntegrationSuite) TestInjectFailureTriggersRecoveryThenResumes(c *gc.C) {
	var cluster = fakeCluster{workers: []Worker{{ID: 1, Addr: "worker-1"}}}
	var fragment = fakeFragment{placement: map[ActorID]WorkerID{100: 1}}
	// With EnableRecovery on, Run's startup pass always recovers once first
	// (failedEpoch InvalidEpoch), bumping currEpoch to 1 before steady state
	// begins; so the first real barrier carries PrevEpoch 1, and that's the
	// one made to fail to exercise runtime (not startup) recovery.
	var failAt = Epoch(1)
	var client = &fakeStreamClient{injectFailAt: &failAt}
	var recoverer = &fakeRecoverer{}

	var co = NewCoordinator(
		Options{MaxInFlight: 1, EnableRecovery: true},
		newFakeStorage(),
		cluster,
		fragment,
		fakeClientPool{client: client},
		recoverer,
		NewMemEpochStore(),
	)

	var cancel = runCoordinator(c, co)
	defer cancel()

	// No checkpoint interval is set, so schedule the barrier that fails.
	co.Schedule(Plain())

	// calls[0] is the unconditional startup pass; calls[1] is the one
	// triggered by the inject failure at epoch 1.
	var deadline = time.After(2 * time.Second)
	for len(recoverer.calls) < 2 {
		select {
		case <-deadline:
			c.Fatal("expected recovery to run after an inject failure")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Once recovered, clear the fault and issue a fresh barrier: it should
	// complete normally against the epoch recovery reported.
	client.mu.Lock()
	client.injectFailAt = nil
	client.mu.Unlock()

	c.Assert(co.Issue(context.Background(), Plain()), gc.IsNil)
}

func (s *IntegrationSuite) TestConcurrentPlainBarriersAllCollect(c *gc.C) {
	var co = newTestCoordinator(newFakeStorage())
	var cancel = runCoordinator(c, co)
	defer cancel()

	var done = make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() { done <- co.Issue(context.Background(), Plain()) }()
	}

	for i := 0; i < 3; i++ {
		select {
		case err := <-done:
			c.Check(err, gc.IsNil)
		case <-time.After(2 * time.Second):
			c.Fatal("expected all issued barriers to eventually collect")
		}
	}
}

var _ = gc.Suite(&IntegrationSuite{})
