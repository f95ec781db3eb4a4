package barrier

import (
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies the failures the Coordinator can produce, per the error
// handling design of the barrier protocol.
type Kind int

const (
	// KindInjectFailed covers an RPC error or worker rejection during inject.
	KindInjectFailed Kind = iota
	// KindCollectFailed covers an RPC error or worker rejection during collect.
	KindCollectFailed
	// KindCommitFailed covers storage refusing an epoch commit.
	KindCommitFailed
	// KindPostCollectFailed covers an external catalog/fragment update failing.
	KindPostCollectFailed
	// KindAborted covers the queue being drained during shutdown or recovery.
	KindAborted
	// KindFatal covers an invariant violation; the process must not continue.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindInjectFailed:
		return "inject failed"
	case KindCollectFailed:
		return "collect failed"
	case KindCommitFailed:
		return "commit failed"
	case KindPostCollectFailed:
		return "post-collect failed"
	case KindAborted:
		return "aborted"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a Kind-tagged error produced by the Coordinator. The underlying
// cause, if any, is wrapped with github.com/pkg/errors and exposed through
// Unwrap, so callers may still errors.Is/errors.As through to the original
// RPC or storage error.
type Error struct {
	Kind  Kind
	epoch Epoch
	cause error
}

func newError(kind Kind, epoch Epoch, cause error, context string) *Error {
	var wrapped = cause
	if context != "" {
		wrapped = errors.WithMessage(cause, context)
	}
	return &Error{Kind: kind, epoch: epoch, cause: wrapped}
}

func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s (epoch %d)", e.Kind, e.epoch)
	}
	return fmt.Sprintf("%s (epoch %d): %v", e.Kind, e.epoch, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// GRPCStatus maps an Error's Kind to a grpc status code, so that an Error
// returned across a meta RPC surface carries a sensible code rather than
// collapsing to codes.Unknown.
func (e *Error) GRPCStatus() *status.Status {
	switch e.Kind {
	case KindInjectFailed, KindCollectFailed:
		return status.New(codes.Unavailable, e.Error())
	case KindCommitFailed, KindPostCollectFailed:
		return status.New(codes.Internal, e.Error())
	case KindAborted:
		return status.New(codes.Canceled, e.Error())
	case KindFatal:
		return status.New(codes.DataLoss, e.Error())
	default:
		return status.New(codes.Unknown, e.Error())
	}
}

// ErrAborted is returned to notifiers of commands still sitting in the
// scheduled queue when the queue is aborted (eg, on shutdown).
var ErrAborted = errors.New("scheduled barrier aborted")

// ErrQueueClosed reports that the scheduled barrier queue is closed. The
// queue itself does not use it: once aborted, push and attach fail their
// notifiers with ErrAborted.
var ErrQueueClosed = errors.New("scheduled barrier queue is closed")
