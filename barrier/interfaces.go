package barrier

import "context"

// StorageManager is the narrow interface the Coordinator uses to durably
// commit epoch outputs and to pin/unpin read snapshots across a
// CreateMaterializedView's multi-epoch backfill. Its implementation (eg
// Tideline's Hummock storage engine) is entirely out of this package's
// scope; the Coordinator only ever calls through this interface.
type StorageManager interface {
	// CommitEpoch durably commits prevEpoch's outputs. Calls must be made
	// in strictly ascending prevEpoch order; the storage engine is entitled
	// to assume this and may behave incorrectly if it's violated.
	CommitEpoch(ctx context.Context, prevEpoch Epoch, ssts []SstInfo) error
	// PinSnapshot pins a read snapshot as of at most maxEpoch under owner,
	// returning an opaque SnapshotID the caller must later Unpin.
	PinSnapshot(ctx context.Context, owner string, maxEpoch Epoch) (SnapshotID, error)
	// UnpinSnapshot releases previously pinned snapshots.
	UnpinSnapshot(ctx context.Context, owner string, snapshots []SnapshotID) error
}

// SnapshotID identifies a pinned storage snapshot.
type SnapshotID uint64

// ClusterManager is the narrow interface the Coordinator uses to discover
// the live compute fleet. Its implementation (membership, heartbeats,
// worker lifecycle) is entirely out of this package's scope.
type ClusterManager interface {
	// ListWorkers returns the currently running compute workers.
	ListWorkers(ctx context.Context) ([]Worker, error)
}

// Worker describes a single compute node in the fleet.
type Worker struct {
	ID   WorkerID
	Addr string
}

// FragmentManager is the narrow interface the Coordinator uses to resolve
// actor placement. Its implementation (fragment/actor catalog, scheduling)
// is entirely out of this package's scope.
type FragmentManager interface {
	// LoadActors returns every actor's hosting worker. When creatingTable is
	// set, the returned map additionally includes the not-yet-visible
	// actors of the materialized view under construction.
	LoadActors(ctx context.Context, creatingTable *TableID) (map[ActorID]WorkerID, error)
}

// StreamClient is the per-worker RPC interface the Coordinator uses to
// inject barriers and collect their completion. Its implementation (the
// gRPC stub dialed to a given Worker.Addr) is entirely out of this
// package's scope.
type StreamClient interface {
	// InjectBarrier enqueues a barrier locally on the worker. It returns as
	// soon as the worker has accepted the barrier for local dispatch; it
	// does not wait for the barrier to drain downstream.
	InjectBarrier(ctx context.Context, req InjectBarrierRequest) error
	// BarrierComplete returns once the worker has finished draining the
	// named barrier downstream and flushing any local state produced while
	// doing so.
	BarrierComplete(ctx context.Context, req BarrierCompleteRequest) (BarrierCompleteResponse, error)
}

// InjectBarrierRequest is the wire shape of an inject-phase RPC.
type InjectBarrierRequest struct {
	RequestID       string
	Barrier         Barrier
	ActorsToSend    []ActorID
	ActorsToCollect []ActorID
}

// Barrier is the control record a worker splices into its data-flow graph
// at the given epoch boundary.
type Barrier struct {
	CurrEpoch Epoch
	PrevEpoch Epoch
	Mutation  *Mutation
	// Span carries opaque distributed-tracing context; Tideline doesn't
	// currently populate it (see barrier/inject.go).
	Span []byte
}

// BarrierCompleteRequest is the wire shape of a collect-phase RPC.
type BarrierCompleteRequest struct {
	RequestID string
	PrevEpoch Epoch
}

// BarrierCompleteResponse is the wire shape of a collect-phase RPC's reply.
type BarrierCompleteResponse struct {
	SyncedSstables      []SstInfo
	CreateMviewProgress []Progress
}

// StreamClientPool resolves a Worker to the StreamClient used to reach it.
// Implementations typically cache a dialed gRPC connection per Worker.Addr
// and tear it down once the worker leaves the fleet; that lifecycle is
// entirely out of this package's scope.
type StreamClientPool interface {
	Client(ctx context.Context, worker Worker) (StreamClient, error)
}

// Recoverer is the external recovery routine the Coordinator hands off to
// whenever a barrier's epoch fails and the pipeline has fully drained. Its
// internal algorithm (re-deriving a consistent fleet state) is entirely out
// of this package's scope; only its calling convention is specified here.
type Recoverer interface {
	// Recover re-derives a consistent fleet state after a coordinator-visible
	// failure observed at or after failedEpoch, and returns the epoch to
	// resume from along with any in-progress materialized-view backfill
	// state that survived the failure.
	Recover(ctx context.Context, failedEpoch Epoch) (newEpoch Epoch, actorsToTrack []ActorID, progress []Progress, err error)
}
