package barrier

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// recover drains the pipeline and fails every drained node's notifiers with
// that node's own failure, or with cause for nodes that hadn't themselves
// failed (or a generic aborted error if cause is nil). If recovery is
// disabled, that's the end of it: recover
// returns cause so the caller terminates with the original error instead of
// papering over it. Otherwise it asks the external Recoverer to rebuild a
// consistent fleet state and leaves the Coordinator ready to resume
// injection from the epoch it reports, clearing isRecovering only on
// success, and returns nil.
func (c *Coordinator) recover(ctx context.Context, failedEpoch Epoch, cause error) error {
	c.pipeline.isRecovering = true
	c.progress.reset()

	var drained = c.pipeline.drainAll()
	for _, node := range drained {
		var err = node.failure
		if err == nil {
			err = cause
		}
		if err == nil {
			err = newError(KindAborted, node.cmdCtx.PrevEpoch, ErrAborted, "pipeline drained for recovery")
		}
		for _, n := range node.notifiers {
			n.notifyFailed(err)
		}
	}

	if !c.opts.EnableRecovery {
		log.WithField("failedEpoch", failedEpoch).Error("recovery disabled, terminating on original error")
		return cause
	}

	log.WithField("failedEpoch", failedEpoch).Warn("entering recovery")

	var newEpoch, actorsToTrack, progress, err = c.recoverer.Recover(ctx, failedEpoch)
	if err != nil {
		// Recovery itself failing is fatal: there's no further fallback
		// within the coordinator, so the caller's run loop must stop.
		log.WithError(err).Panic("recovery failed")
	}

	c.currEpoch = newEpoch
	if err := c.epochs.SaveInFlightPrevEpoch(ctx, newEpoch); err != nil {
		log.WithError(err).Warn("failed to persist in-flight prev epoch")
	}
	if len(actorsToTrack) > 0 {
		c.progress.add(newEpoch, actorsToTrack, nil)
	}
	for _, p := range progress {
		c.progress.update(p)
	}

	c.pipeline.isRecovering = false
	log.WithField("newEpoch", newEpoch).Info("recovery complete")
	return nil
}
