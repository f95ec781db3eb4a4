package barrier

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// completion is delivered on the Coordinator's shared completion channel by
// a detached collect task. Ordering of deliveries on this channel is not
// assumed; the commit loop matches prevEpoch back to its epochNode.
type completion struct {
	prevEpoch Epoch
	responses []BarrierCompleteResponse
	err       error
}

// injectAndCollect sends the inject-phase RPC to every worker hosting actors
// for cmdCtx, awaiting all of them together. On success, it spawns a
// detached goroutine that fans out the collect-phase RPC and delivers a
// completion on out once every worker has drained the barrier. Any inject
// error is delivered on out immediately instead, without spawning collect.
func injectAndCollect(ctx context.Context, clients map[WorkerID]StreamClient, cmdCtx *CommandContext, out chan<- completion) {
	var err = injectBarrier(ctx, clients, cmdCtx)
	if err != nil {
		go func() { out <- completion{prevEpoch: cmdCtx.PrevEpoch, err: err} }()
		return
	}
	go collectBarrier(ctx, clients, cmdCtx, out)
}

// injectBarrier fans the inject-phase RPC out to every worker whose
// actorsToCollect set is non-empty, and awaits all of them together. Any
// single error fails the whole epoch immediately.
func injectBarrier(ctx context.Context, clients map[WorkerID]StreamClient, cmdCtx *CommandContext) error {
	var group, gctx = errgroup.WithContext(ctx)
	var info = cmdCtx.Info

	for workerID, toCollect := range info.actorsToCollect {
		var workerID, toCollect = workerID, toCollect
		var toSend = info.actorsToSend[workerID]

		if len(toCollect) == 0 {
			if len(toSend) != 0 {
				log.WithFields(log.Fields{
					"worker": workerID,
					"toSend": toSend,
				}).Panic("invariant violated: empty actorsToCollect with non-empty actorsToSend")
			}
			continue
		}

		var client, ok = clients[workerID]
		if !ok {
			return newError(KindInjectFailed, cmdCtx.PrevEpoch, errors.Errorf("no StreamClient for worker %d", workerID), "inject barrier")
		}

		group.Go(func() error {
			var req = InjectBarrierRequest{
				RequestID: uuid.New().String(),
				Barrier: Barrier{
					CurrEpoch: cmdCtx.CurrEpoch,
					PrevEpoch: cmdCtx.PrevEpoch,
					Mutation:  cmdCtx.mutation,
				},
				ActorsToSend:    toSend,
				ActorsToCollect: toCollect,
			}
			// This RPC returns only once the worker has locally enqueued
			// the barrier; it does not await local drain.
			if err := client.InjectBarrier(gctx, req); err != nil {
				return errors.WithMessagef(err, "injecting barrier to worker %d", workerID)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return newError(KindInjectFailed, cmdCtx.PrevEpoch, err, "")
	}
	return nil
}

// collectBarrier fans the collect-phase RPC out to the same worker set used
// for inject, and delivers the aggregate completion on out once every
// worker has drained the barrier downstream, or on first error.
func collectBarrier(ctx context.Context, clients map[WorkerID]StreamClient, cmdCtx *CommandContext, out chan<- completion) {
	var group, gctx = errgroup.WithContext(ctx)
	var responses = make([]BarrierCompleteResponse, len(cmdCtx.Info.actorsToCollect))
	var i int

	for workerID, toCollect := range cmdCtx.Info.actorsToCollect {
		if len(toCollect) == 0 {
			continue
		}
		var workerID, idx = workerID, i
		i++

		var client, ok = clients[workerID]
		if !ok {
			out <- completion{prevEpoch: cmdCtx.PrevEpoch, err: newError(KindCollectFailed, cmdCtx.PrevEpoch, errors.Errorf("no StreamClient for worker %d", workerID), "collect barrier")}
			return
		}

		group.Go(func() error {
			var req = BarrierCompleteRequest{
				RequestID: uuid.New().String(),
				PrevEpoch: cmdCtx.PrevEpoch,
			}
			// This RPC returns only once the worker has finished draining
			// the barrier downstream and flushing local state.
			var resp, err = client.BarrierComplete(gctx, req)
			if err != nil {
				return errors.WithMessagef(err, "collecting barrier from worker %d", workerID)
			}
			responses[idx] = resp
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		out <- completion{prevEpoch: cmdCtx.PrevEpoch, err: newError(KindCollectFailed, cmdCtx.PrevEpoch, err, "")}
		return
	}
	out <- completion{prevEpoch: cmdCtx.PrevEpoch, responses: responses[:i]}
}
