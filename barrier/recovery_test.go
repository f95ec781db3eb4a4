package barrier

import (
	"context"

	gc "github.com/go-check/check"
)

type RecoverySuite struct{}

func (s *RecoverySuite) TestRecoverDrainsAndFailsNotifiers(c *gc.C) {
	var co = newTestCoordinator(newFakeStorage())
	co.opts.EnableRecovery = true
	var recoverer = &fakeRecoverer{}
	co.recoverer = recoverer

	var n = NewNotifier(Slots{Failed: true})
	var node = nodeAt(0, Plain())
	node.state = stateFailed
	node.notifiers = []*Notifier{n}
	co.pipeline.pushBack(node)

	c.Assert(co.recover(context.Background(), 0, nil), gc.IsNil)

	c.Check(co.pipeline.empty(), gc.Equals, true)
	c.Check(co.pipeline.isRecovering, gc.Equals, false)
	c.Assert(recoverer.calls, gc.HasLen, 1)
	c.Check(recoverer.calls[0], gc.Equals, Epoch(0))

	select {
	case <-n.Failed():
	default:
		c.Fatal("expected drained node's notifier to fire failed")
	}
}

func (s *RecoverySuite) TestRecoverResumesFromReportedEpoch(c *gc.C) {
	var co = newTestCoordinator(newFakeStorage())
	co.opts.EnableRecovery = true
	co.recoverer = &fakeRecoverer{}

	c.Assert(co.recover(context.Background(), 5, nil), gc.IsNil)
	c.Check(co.currEpoch, gc.Equals, Epoch(6))
}

func (s *RecoverySuite) TestRecoverResetsProgressTracking(c *gc.C) {
	var co = newTestCoordinator(newFakeStorage())
	co.opts.EnableRecovery = true
	co.recoverer = &fakeRecoverer{}
	co.progress.add(1, []ActorID{10}, nil)

	c.Assert(co.recover(context.Background(), 0, nil), gc.IsNil)
	c.Check(co.progress.entries, gc.HasLen, 0)
}

func (s *RecoverySuite) TestRecoveryDisabledTerminatesWithOriginalError(c *gc.C) {
	var co = newTestCoordinator(newFakeStorage())
	var recoverer = &fakeRecoverer{}
	co.recoverer = recoverer

	var n = NewNotifier(Slots{Failed: true})
	var node = nodeAt(0, Plain())
	node.state = stateFailed
	node.notifiers = []*Notifier{n}
	co.pipeline.pushBack(node)

	var cause = newError(KindCommitFailed, 0, errTestCommit, "")
	var err = co.recover(context.Background(), 0, cause)
	c.Assert(err, gc.Equals, cause)

	// The Recoverer must never be consulted when recovery is disabled.
	c.Check(co.pipeline.empty(), gc.Equals, true)
	c.Check(recoverer.calls, gc.HasLen, 0)

	select {
	case err := <-n.Failed():
		c.Check(err, gc.Equals, cause)
	default:
		c.Fatal("expected drained node's notifier to fire failed")
	}
}

var _ = gc.Suite(&RecoverySuite{})
