package barrier

import log "github.com/sirupsen/logrus"

// Notifier bundles up to four one-shot completion channels a caller may
// attach to a scheduled Command. Any subset of the four slots may be
// present; an absent slot is simply never sent to. Each present slot fires
// at most once. It's permitted to drop a Notifier (eg, because the caller
// only wanted schedule-and-forget) without any slot ever firing.
type Notifier struct {
	// toSend is closed by notifyToSend. The Coordinator does not call
	// notifyToSend on any path, so for a Notifier handed to the Coordinator
	// this slot never fires.
	toSend chan struct{}
	// collected fires once every worker has acknowledged collection and the
	// storage commit (and post-collect hook) for this epoch has succeeded.
	collected chan error
	// finished fires once the command's tracked actors have all reported
	// backfill completion. For commands with no tracked actors, it fires
	// immediately after collected.
	finished chan struct{}
	// failed fires on abort, or when any phase of this barrier's epoch
	// fails. Mutually exclusive with a collected(nil).
	failed chan error
	// epoch is set to the CurrEpoch of the barrier this Notifier ended up
	// attached to, once known. It's only meaningful after Collected() has
	// fired with a nil error.
	epoch Epoch
}

// NewNotifier allocates a Notifier with the given slots enabled. Pass an
// empty Slots to get a Notifier that nothing can observe (useful for
// Schedule's fire-and-forget semantics).
func NewNotifier(slots Slots) *Notifier {
	var n = new(Notifier)
	if slots.ToSend {
		n.toSend = make(chan struct{})
	}
	if slots.Collected {
		n.collected = make(chan error, 1)
	}
	if slots.Finished {
		n.finished = make(chan struct{})
	}
	if slots.Failed {
		n.failed = make(chan error, 1)
	}
	return n
}

// Slots selects which completion channels a Notifier should allocate.
type Slots struct {
	ToSend    bool
	Collected bool
	Finished  bool
	Failed    bool
}

// notifyToSend fires the toSend slot, if present. Safe to call at most once.
func (n *Notifier) notifyToSend() {
	if n.toSend != nil {
		close(n.toSend)
	}
}

// notifyCollected fires the collected slot with a nil error, if present.
func (n *Notifier) notifyCollected() {
	if n.collected != nil {
		n.collected <- nil
	}
}

// notifyFinished fires the finished slot, if present.
func (n *Notifier) notifyFinished() {
	if n.finished != nil {
		close(n.finished)
	}
}

// notifyFailed fires collected (with err, if the collected slot hasn't
// already fired successfully) and failed, if present. It's the terminal
// notification for a Notifier: neither finished nor a later collected
// should fire after this.
func (n *Notifier) notifyFailed(err error) {
	if err == nil {
		log.WithField("notifier", n).Panic("notifyFailed called with a nil error")
	}
	if n.collected != nil {
		select {
		case n.collected <- err:
		default:
			// Already fired with Ok; this shouldn't happen by construction
			// (collected(Ok) and failed are mutually exclusive), but we
			// don't want to block or double-send.
		}
	}
	if n.failed != nil {
		n.failed <- err
	}
}

// ToSend returns the toSend slot's channel, which closes only when
// notifyToSend is called; the Coordinator never calls it.
func (n *Notifier) ToSend() <-chan struct{} { return n.toSend }

// Collected returns a channel that yields nil on success, or the error that
// failed this epoch.
func (n *Notifier) Collected() <-chan error { return n.collected }

// Finished returns a channel that closes once tracked actors have all
// reported completion.
func (n *Notifier) Finished() <-chan struct{} { return n.finished }

// Failed returns a channel that yields the error that aborted this command.
func (n *Notifier) Failed() <-chan error { return n.failed }

// Epoch returns the CurrEpoch of the barrier this Notifier was attached to.
// Only meaningful once Collected() has yielded a nil error.
func (n *Notifier) Epoch() Epoch { return n.epoch }
