package barrier

import (
	"context"

	gc "github.com/go-check/check"
)

type CommitSuite struct{}

func newTestCoordinator(storage StorageManager) *Coordinator {
	return NewCoordinator(
		Options{MaxInFlight: 4},
		storage,
		fakeCluster{},
		fakeFragment{},
		fakeClientPool{client: &fakeStreamClient{}},
		&fakeRecoverer{},
		NewMemEpochStore(),
	)
}

func (s *CommitSuite) TestOutOfOrderCompletionsCommitInHeadOrder(c *gc.C) {
	var storage = newFakeStorage()
	var co = newTestCoordinator(storage)

	var nodeA = nodeAt(0, Plain())
	var nodeB = nodeAt(1, Plain())
	co.pipeline.pushBack(nodeA)
	co.pipeline.pushBack(nodeB)

	// Epoch 1 (the tail) completes before epoch 0 (the head).
	co.applyCompletion(completion{prevEpoch: 1})
	c.Check(co.tryCommitHead(context.Background()), gc.IsNil)
	c.Check(storage.committed, gc.HasLen, 0)

	// Now the head completes too; both nodes pop in ascending order, but
	// epoch 0's PrevEpoch is InvalidEpoch - the very first boundary, with
	// nothing preceding it to commit - so only epoch 1 reaches storage.
	co.applyCompletion(completion{prevEpoch: 0})
	c.Check(co.tryCommitHead(context.Background()), gc.IsNil)
	c.Check(storage.committed, gc.DeepEquals, []Epoch{1})
	c.Check(co.pipeline.empty(), gc.Equals, true)
}

func (s *CommitSuite) TestNotifiersFireOnCommit(c *gc.C) {
	var storage = newFakeStorage()
	var co = newTestCoordinator(storage)

	var n = NewNotifier(Slots{Collected: true})
	var node = nodeAt(0, Plain())
	node.notifiers = []*Notifier{n}
	co.pipeline.pushBack(node)

	co.applyCompletion(completion{prevEpoch: 0})
	c.Check(co.tryCommitHead(context.Background()), gc.IsNil)

	select {
	case err := <-n.Collected():
		c.Check(err, gc.IsNil)
	default:
		c.Fatal("expected collected to fire")
	}
}

func (s *CommitSuite) TestCommitFailureRequestsRecovery(c *gc.C) {
	var storage = newFakeStorage()
	// Epoch 0's PrevEpoch is InvalidEpoch and never reaches storage, so use
	// epoch 1 (PrevEpoch 1) to actually exercise a failing CommitEpoch call.
	var failAt = Epoch(1)
	storage.failAt = &failAt
	var co = newTestCoordinator(storage)

	co.pipeline.pushBack(nodeAt(1, Plain()))
	co.applyCompletion(completion{prevEpoch: 1})

	c.Check(co.tryCommitHead(context.Background()), gc.NotNil)
	c.Check(co.pipeline.front().state, gc.Equals, stateFailed)
}

func (s *CommitSuite) TestInjectFailureMarksNodeFailed(c *gc.C) {
	var storage = newFakeStorage()
	var co = newTestCoordinator(storage)
	co.pipeline.pushBack(nodeAt(0, Plain()))

	co.applyCompletion(completion{prevEpoch: 0, err: newError(KindInjectFailed, 0, errTestCommit, "")})
	c.Check(co.tryCommitHead(context.Background()), gc.NotNil)
}

var _ = gc.Suite(&CommitSuite{})
