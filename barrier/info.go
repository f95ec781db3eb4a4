package barrier

import "context"

// ActorInfo is an immutable snapshot of fleet topology resolved once, at
// injection time, from ClusterManager and FragmentManager. It never changes
// after being attached to a CommandContext.
type ActorInfo struct {
	// nodeMap holds every worker hosting at least one tracked actor.
	nodeMap map[WorkerID]Worker
	// actorsToSend maps a worker to the actors it must forward the barrier
	// to locally (its own hosted actors plus any immediate downstream
	// fan-out targets also on that worker).
	actorsToSend map[WorkerID][]ActorID
	// actorsToCollect maps a worker to the actors whose local drain must be
	// observed before the barrier is considered collected on that worker.
	actorsToCollect map[WorkerID][]ActorID
}

// resolveActorInfo combines a live worker list and actor placement into an
// ActorInfo snapshot. It mirrors resolving a consistent view from two
// independently-sourced distributed facts (workers, placement), the same
// shape as combining KeySpace assignments into a single Resolution.
func resolveActorInfo(ctx context.Context, cluster ClusterManager, fragment FragmentManager, creatingTable *TableID) (ActorInfo, error) {
	var workers, err = cluster.ListWorkers(ctx)
	if err != nil {
		return ActorInfo{}, newError(KindFatal, InvalidEpoch, err, "resolving worker list")
	}
	var placement map[ActorID]WorkerID
	if placement, err = fragment.LoadActors(ctx, creatingTable); err != nil {
		return ActorInfo{}, newError(KindFatal, InvalidEpoch, err, "resolving actor placement")
	}

	var byWorker = make(map[WorkerID]Worker, len(workers))
	for _, w := range workers {
		byWorker[w.ID] = w
	}

	var info = ActorInfo{
		nodeMap:         make(map[WorkerID]Worker),
		actorsToSend:    make(map[WorkerID][]ActorID),
		actorsToCollect: make(map[WorkerID][]ActorID),
	}
	for actor, workerID := range placement {
		var w, ok = byWorker[workerID]
		if !ok {
			// Actor is placed on a worker that's no longer running. It is
			// left out of the ActorInfo, so that worker is neither
			// injected into nor collected from for this barrier.
			continue
		}
		info.nodeMap[workerID] = w
		info.actorsToSend[workerID] = append(info.actorsToSend[workerID], actor)
		info.actorsToCollect[workerID] = append(info.actorsToCollect[workerID], actor)
	}
	return info, nil
}

// nothingToDo reports whether this ActorInfo describes an empty fleet: no
// worker has any actor to collect from. Per the empty-topology fast path,
// the Coordinator skips injection entirely in this case.
func (info ActorInfo) nothingToDo() bool {
	return len(info.actorsToCollect) == 0
}

// workers returns the set of workers this ActorInfo must fan out to: those
// with a non-empty actorsToCollect set.
func (info ActorInfo) workers() []Worker {
	var out = make([]Worker, 0, len(info.actorsToCollect))
	for id := range info.actorsToCollect {
		out = append(out, info.nodeMap[id])
	}
	return out
}
