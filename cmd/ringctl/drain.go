package main

import (
	"context"
	"errors"

	ringchan "github.com/kolayne/go-ringchan"
)

// consume reads from h into sink until the ring is known to be drained for
// good. It parks on an empty ring until writersDone is cancelled, then keeps
// reading in non-blocking mode: with every writer gone the first
// ErrWouldBlock marks the end of the stream. Cancellation of ctx aborts.
func consume(ctx, writersDone context.Context, h *ringchan.Handle, chunk int, sink func([]byte) error) error {
	buf := make([]byte, chunk)
	rctx := writersDone

	for {
		n, err := h.ReadContext(rctx, buf)
		if n > 0 {
			if serr := sink(buf[:n]); serr != nil {
				return serr
			}
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, ringchan.ErrInterrupted) && !h.Nonblock():
			if ctx.Err() != nil {
				return err
			}
			h.SetNonblock(true)
			rctx = ctx
		case errors.Is(err, ringchan.ErrWouldBlock):
			return nil
		default:
			return err
		}
	}
}
