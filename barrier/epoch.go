package barrier

// Epoch is a 64-bit monotonically increasing logical timestamp labelling a
// barrier and the storage state it commits.
type Epoch uint64

// InvalidEpoch marks the very first boundary a Coordinator ever injects: no
// storage commit is performed for it, since there is no preceding epoch of
// data to make durable.
const InvalidEpoch Epoch = 0

// Next returns the next epoch after e. Next is strict: Next(e) > e always.
func (e Epoch) Next() Epoch {
	return e + 1
}
