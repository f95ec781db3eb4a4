package barrier

import (
	gc "github.com/go-check/check"
)

type ProgressSuite struct{}

func (s *ProgressSuite) TestEmptyActorsFireImmediately(c *gc.C) {
	var t = newProgressTracker()
	var n = NewNotifier(Slots{Finished: true})
	t.add(1, nil, []*Notifier{n})

	select {
	case <-n.Finished():
	default:
		c.Fatal("expected immediate finished fire for empty actor set")
	}
	c.Check(t.entries, gc.HasLen, 0)
}

func (s *ProgressSuite) TestFiresOnceAllTrackedActorsDone(c *gc.C) {
	var t = newProgressTracker()
	var n = NewNotifier(Slots{Finished: true})
	t.add(1, []ActorID{10, 11}, []*Notifier{n})

	t.update(Progress{TableID: 5, Actor: 10, Done: true})
	select {
	case <-n.Finished():
		c.Fatal("must not fire until every tracked actor reports done")
	default:
	}

	t.update(Progress{TableID: 5, Actor: 11, Done: true})
	select {
	case <-n.Finished():
	default:
		c.Fatal("expected finished to fire once every tracked actor is done")
	}
	c.Check(t.entries, gc.HasLen, 0)
}

func (s *ProgressSuite) TestUpdateForUntrackedActorIsIgnored(c *gc.C) {
	var t = newProgressTracker()
	var n = NewNotifier(Slots{Finished: true})
	t.add(1, []ActorID{10}, []*Notifier{n})

	t.update(Progress{TableID: 5, Actor: 999, Done: true})
	select {
	case <-n.Finished():
		c.Fatal("unrelated actor's progress must not fire unrelated entries")
	default:
	}
}

func (s *ProgressSuite) TestResetDropsAllEntries(c *gc.C) {
	var t = newProgressTracker()
	t.add(1, []ActorID{10}, nil)
	t.add(2, []ActorID{11}, nil)
	c.Check(t.entries, gc.HasLen, 2)

	t.reset()
	c.Check(t.entries, gc.HasLen, 0)
}

var _ = gc.Suite(&ProgressSuite{})
