package ringchan

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidCapacity is returned by New() for a capacity below 1.
	ErrInvalidCapacity = errors.New("invalid ring capacity")

	// ErrWouldBlock is returned by a non-blocking Write() on a full ring, or a
	// non-blocking Read() on an empty one. Nothing was transferred.
	ErrWouldBlock = errors.New("operation would block")

	// ErrInterrupted is returned when the context of a call is done before
	// the gate was obtained, or while the call was parked and no bytes could
	// be transferred afterwards. The returned error also wraps the context
	// cause, so errors.Is(err, context.Canceled) works as expected.
	ErrInterrupted = errors.New("interrupted")

	// ErrTransferFault is returned when the Copier moved no bytes at all
	// for a non-empty request, the analog of a bad caller address.
	ErrTransferFault = errors.New("transfer fault")

	// ErrClosed is returned by every call after Close(), including the ones
	// parked at the time Close() was invoked.
	ErrClosed = errors.New("ring closed")

	// ErrInternalInvariant marks a corrupted ring state. It can only surface
	// from the bounds checks around a transfer (computed size, cursor and
	// occupied ranges, and a Copier reporting more than it was handed); it is
	// a defect, never a normal outcome.
	ErrInternalInvariant = errors.New("ring invariant violated")
)

func interrupted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
}
