package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tideline-db/tideline/barrier"
)

// newDeployment wires a Coordinator against a minimal reference
// environment: an empty fleet with no workers and no actors, so every
// barrier takes the empty-topology fast path and no StreamClient is ever
// dialed. It exists so this command is runnable standalone;
// a real deployment supplies its own ClusterManager, FragmentManager,
// StorageManager and StreamClientPool wired to the actual compute fleet and
// storage engine, which are entirely out of this module's scope.
func newDeployment(cfg BarrierConfig, epochs barrier.EpochStore) *barrier.Coordinator {
	return barrier.NewCoordinator(
		barrier.Options{
			MaxInFlight:        cfg.MaxInFlight,
			EnableRecovery:     cfg.EnableRecovery,
			CheckpointInterval: time.Duration(cfg.IntervalMS) * time.Millisecond,
		},
		noopStorage{},
		emptyCluster{},
		emptyFragment{},
		loopbackClients{},
		noopRecoverer{},
		epochs,
	)
}

type noopStorage struct{}

func (noopStorage) CommitEpoch(ctx context.Context, prevEpoch barrier.Epoch, ssts []barrier.SstInfo) error {
	log.WithField("prevEpoch", prevEpoch).Debug("commit epoch (no-op storage)")
	return nil
}

func (noopStorage) PinSnapshot(ctx context.Context, owner string, maxEpoch barrier.Epoch) (barrier.SnapshotID, error) {
	return barrier.SnapshotID(maxEpoch), nil
}

func (noopStorage) UnpinSnapshot(ctx context.Context, owner string, snapshots []barrier.SnapshotID) error {
	return nil
}

// emptyCluster reports no running workers, so every barrier takes the
// empty-topology fast path until a real ClusterManager is wired in.
type emptyCluster struct{}

func (emptyCluster) ListWorkers(ctx context.Context) ([]barrier.Worker, error) {
	return nil, nil
}

type emptyFragment struct{}

func (emptyFragment) LoadActors(ctx context.Context, creatingTable *barrier.TableID) (map[barrier.ActorID]barrier.WorkerID, error) {
	return nil, nil
}

// loopbackClients never dials anything: with emptyCluster reporting no
// workers, Client is never actually called.
type loopbackClients struct{}

func (loopbackClients) Client(ctx context.Context, worker barrier.Worker) (barrier.StreamClient, error) {
	return nil, nil
}

type noopRecoverer struct{}

func (noopRecoverer) Recover(ctx context.Context, failedEpoch barrier.Epoch) (barrier.Epoch, []barrier.ActorID, []barrier.Progress, error) {
	log.WithField("failedEpoch", failedEpoch).Warn("recovering (no-op recoverer)")
	return failedEpoch.Next(), nil, nil, nil
}
