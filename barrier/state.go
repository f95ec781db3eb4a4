package barrier

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EpochStore persists the single piece of state the coordinator must
// recover after a restart: the prev-epoch of the last barrier that was
// either committed, or in flight when the process stopped. A single typed
// record backed by a raw Etcd value, rather than a whole KeySpace, since
// the coordinator only ever needs its own last-known epoch.
type EpochStore interface {
	// LoadInFlightPrevEpoch returns the persisted prev-epoch, or
	// InvalidEpoch if no record exists yet.
	LoadInFlightPrevEpoch(ctx context.Context) (Epoch, error)
	// SaveInFlightPrevEpoch persists prevEpoch, overwriting any prior value.
	SaveInFlightPrevEpoch(ctx context.Context, prevEpoch Epoch) error
}

// etcdEpochStore is an EpochStore backed by a single Etcd key.
type etcdEpochStore struct {
	client *clientv3.Client
	key    string
}

// NewEtcdEpochStore returns an EpochStore that persists its record under
// key, using client. The caller owns the client's lifecycle.
func NewEtcdEpochStore(client *clientv3.Client, key string) EpochStore {
	return &etcdEpochStore{client: client, key: key}
}

func (s *etcdEpochStore) LoadInFlightPrevEpoch(ctx context.Context) (Epoch, error) {
	var resp, err = s.client.Get(ctx, s.key)
	if err != nil {
		return InvalidEpoch, errors.WithMessage(err, "loading in-flight prev epoch")
	}
	if len(resp.Kvs) == 0 {
		return InvalidEpoch, nil
	}
	if len(resp.Kvs[0].Value) != 8 {
		return InvalidEpoch, errors.Errorf("malformed in-flight prev epoch record (want 8 bytes, got %d)", len(resp.Kvs[0].Value))
	}
	return Epoch(binary.BigEndian.Uint64(resp.Kvs[0].Value)), nil
}

func (s *etcdEpochStore) SaveInFlightPrevEpoch(ctx context.Context, prevEpoch Epoch) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(prevEpoch))

	if _, err := s.client.Put(ctx, s.key, string(buf[:])); err != nil {
		return errors.WithMessage(err, "saving in-flight prev epoch")
	}
	return nil
}

// memEpochStore is an in-memory EpochStore, for tests and single-process
// development where no Etcd cluster is available.
type memEpochStore struct {
	mu   sync.Mutex
	have bool
	val  Epoch
}

// NewMemEpochStore returns an EpochStore that holds its record in memory
// only; it does not survive process restart.
func NewMemEpochStore() EpochStore {
	return &memEpochStore{}
}

func (s *memEpochStore) LoadInFlightPrevEpoch(ctx context.Context) (Epoch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.have {
		return InvalidEpoch, nil
	}
	return s.val, nil
}

func (s *memEpochStore) SaveInFlightPrevEpoch(ctx context.Context, prevEpoch Epoch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.have = true
	s.val = prevEpoch
	return nil
}
