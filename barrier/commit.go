package barrier

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// applyCompletion matches a completion to its epochNode in the pipeline and
// records the outcome. It never commits by itself: committing is the
// exclusive privilege of the pipeline head, enforced by tryCommitHead.
//
// A completion is recorded against whichever epochNode it belongs to
// regardless of arrival order; committing is a separate pass that walks
// the queue from the front, applying whatever's ready.
func (c *Coordinator) applyCompletion(comp completion) {
	var node = c.pipeline.find(comp.prevEpoch)
	if node == nil {
		log.WithField("prevEpoch", comp.prevEpoch).Warn("completion for unknown epoch, dropping")
		return
	}
	if node.state != stateInFlight {
		log.WithField("prevEpoch", comp.prevEpoch).Warn("duplicate completion for epoch, dropping")
		return
	}
	if comp.err != nil {
		node.state = stateFailed
		node.failure = comp.err
		return
	}
	node.state = stateComplete
	node.responses = comp.responses
}

// tryCommitHead commits the pipeline head for as long as it's Complete,
// stopping at the first node that's still InFlight or that's Failed. It
// returns the head's failure once one is hit, so the caller can bridge to
// recovery; a nil return means every ready node committed cleanly.
//
// Commits are strictly ascending and only ever apply to the current head,
// so a later epoch's completion arriving before an earlier one's changes
// nothing until the earlier one also completes.
func (c *Coordinator) tryCommitHead(ctx context.Context) (failure error) {
	for {
		var node = c.pipeline.front()
		if node == nil {
			return nil
		}
		switch node.state {
		case stateInFlight:
			return nil
		case stateFailed:
			return node.failure
		}

		if err := c.commitOne(ctx, node); err != nil {
			node.state = stateFailed
			node.failure = err
			return err
		}

		c.pipeline.popFront()
		for _, n := range node.notifiers {
			n.epoch = node.cmdCtx.CurrEpoch
			n.notifyCollected()
		}
		c.progress.add(node.cmdCtx.CurrEpoch, node.cmdCtx.actorsToTrack(), node.notifiers)
	}
}

// commitOne commits a single completed epoch's state to storage and runs
// the Command's post-collect hook. The very first barrier's PrevEpoch is
// InvalidEpoch, marking a boundary with nothing preceding it to commit, so
// the storage commit is skipped for that one node. Per design decision,
// the epoch is only considered collected if the remaining steps succeed; a
// post-collect failure after a successful storage commit still fails the
// epoch.
func (c *Coordinator) commitOne(ctx context.Context, node *epochNode) error {
	if node.cmdCtx.PrevEpoch != InvalidEpoch {
		var ssts []SstInfo
		for _, resp := range node.responses {
			ssts = append(ssts, resp.SyncedSstables...)
		}

		if err := c.storage.CommitEpoch(ctx, node.cmdCtx.PrevEpoch, ssts); err != nil {
			return newError(KindCommitFailed, node.cmdCtx.PrevEpoch, errors.WithMessage(err, "commit epoch"), "")
		}
	}

	if err := node.cmdCtx.postCollect(); err != nil {
		return newError(KindPostCollectFailed, node.cmdCtx.PrevEpoch, errors.WithMessage(err, "post collect"), "")
	}

	for _, resp := range node.responses {
		for _, p := range resp.CreateMviewProgress {
			c.progress.update(p)
		}
	}

	log.WithFields(log.Fields{
		"prevEpoch": node.cmdCtx.PrevEpoch,
		"currEpoch": node.cmdCtx.CurrEpoch,
		"command":   node.cmdCtx.Command.Tag,
	}).Info("committed epoch")

	return nil
}
