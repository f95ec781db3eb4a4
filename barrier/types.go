package barrier

// ActorID identifies a stream operator instance hosted on a worker.
type ActorID uint32

// WorkerID identifies a compute worker in the fleet.
type WorkerID uint32

// TableID identifies a catalog table, including materialized views.
type TableID uint32

// GroupID identifies a storage compaction group that an SstInfo belongs to.
type GroupID uint64

// SstInfo describes a single sorted-string-table produced by a worker's
// local state backend while draining a barrier.
type SstInfo struct {
	GroupID GroupID
	// ObjectKey is the backing object store key for this SST; opaque to the
	// Coordinator and passed through to StorageManager.CommitEpoch verbatim.
	ObjectKey string
	// SizeBytes is the SST's size, carried for StorageManager's bookkeeping.
	SizeBytes uint64
}

// Mutation is the control-plane payload carried by a barrier, matching the
// Command that produced it. CreateMaterializedView, DropMaterializedView,
// Pause and Resume set exactly one field; Reschedule sets AddActors and/or
// DropActors (or neither, when it adds and drops nothing); Plain commands
// produce a nil Mutation.
type Mutation struct {
	AddActors    *AddActorsMutation
	DropActors   *DropActorsMutation
	PauseSource  *PauseMutation
	ResumeSource *ResumeMutation
}

// AddActorsMutation instructs workers to splice new actors into the
// data-flow graph, used by CreateMaterializedView and Reschedule.
type AddActorsMutation struct {
	Actors []ActorID
}

// DropActorsMutation instructs workers to remove actors from the data-flow
// graph, used by DropMaterializedView and Reschedule.
type DropActorsMutation struct {
	Actors []ActorID
}

// PauseMutation instructs source actors to stop emitting records.
type PauseMutation struct{}

// ResumeMutation instructs source actors to resume emitting records.
type ResumeMutation struct{}

// Progress reports a single actor's materialized-view backfill state,
// returned as part of a BarrierCompleteResponse.
type Progress struct {
	TableID TableID
	Actor   ActorID
	Done    bool
}
