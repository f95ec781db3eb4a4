package barrier

// progressTracker tracks per-epoch materialized-view backfill completion
// across epochs, firing a command's finished notifiers once every tracked
// actor has reported done.
type progressTracker struct {
	entries map[Epoch]*progressEntry
}

type progressEntry struct {
	tracked   map[ActorID]struct{}
	done      map[ActorID]struct{}
	notifiers []*Notifier
}

func newProgressTracker() *progressTracker {
	return &progressTracker{entries: make(map[Epoch]*progressEntry)}
}

// add registers a new epoch's tracked actors and notifiers. If actors is
// empty, every notifier's finished slot fires immediately: there's nothing
// to backfill, so the command is already done.
func (t *progressTracker) add(epoch Epoch, actors []ActorID, notifiers []*Notifier) {
	if len(actors) == 0 {
		for _, n := range notifiers {
			n.notifyFinished()
		}
		return
	}
	var tracked = make(map[ActorID]struct{}, len(actors))
	for _, a := range actors {
		tracked[a] = struct{}{}
	}
	t.entries[epoch] = &progressEntry{
		tracked:   tracked,
		done:      make(map[ActorID]struct{}),
		notifiers: notifiers,
	}
}

// update applies a single actor's progress report. When an entry's done set
// reaches its tracked set, every notifier registered against that entry
// fires finished and the entry is removed.
func (t *progressTracker) update(p Progress) {
	for epoch, entry := range t.entries {
		if _, ok := entry.tracked[p.Actor]; !ok {
			continue
		}
		if p.Done {
			entry.done[p.Actor] = struct{}{}
		}
		if len(entry.done) == len(entry.tracked) {
			for _, n := range entry.notifiers {
				n.notifyFinished()
			}
			delete(t.entries, epoch)
		}
	}
}

// reset drops all entries, used when entering recovery: any in-flight
// backfill tracking is no longer valid once the fleet is re-derived.
func (t *progressTracker) reset() {
	t.entries = make(map[Epoch]*progressEntry)
}
