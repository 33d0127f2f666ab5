package ringchan

import "golang.org/x/xerrors"

// span is the half-open range [lo:hi) of the backing storage touched by one
// copy step
type span struct {
	lo int
	hi int
}

func (s span) size() int { return s.hi - s.lo }

// spans splits n logically contiguous bytes starting at cursor into at most
// two physical ranges. Since n never exceeds capacity the region can straddle
// the end of the storage at most once, the second span is empty otherwise.
func spans(cursor, n, capacity int) (first, second span) {
	if cursor+n <= capacity {
		return span{cursor, cursor + n}, span{}
	}
	return span{cursor, capacity}, span{0, cursor + n - capacity}
}

// copySpans hands each span of the want bytes at cursor to move, along with
// the number of bytes already moved by earlier spans. A short move ends the
// transfer: whatever follows the faulting position is not attempted.
func (ch *Channel) copySpans(cursor, want int, move func(storage []byte, done int) int) (done int, err error) {
	if want <= 0 || want > ch.capacity || cursor < 0 || cursor >= ch.capacity {
		return 0, ch.invariant("transfer of %d bytes at cursor %d", want, cursor)
	}

	first, second := spans(cursor, want, ch.capacity)
	for _, s := range [2]span{first, second} {
		if s.size() == 0 {
			break
		}

		n := move(ch.buf[s.lo:s.hi], done)
		if n < 0 || n > s.size() {
			return 0, ch.invariant("copy primitive reported %d bytes for a %d byte span", n, s.size())
		}

		done += n
		if n < s.size() {
			break
		}
	}
	return done, nil
}

func (ch *Channel) checkInvariants() error {
	if ch.occupied < 0 || ch.occupied > ch.capacity {
		return ch.invariant("occupied count %d out of range [0:%d]", ch.occupied, ch.capacity)
	}
	if ch.readPos < 0 || ch.readPos >= ch.capacity {
		return ch.invariant("read cursor %d out of range [0:%d)", ch.readPos, ch.capacity)
	}
	return nil
}

// invariant builds an ErrInternalInvariant carrying the caller frame, and
// reports it on the error level of the configured logger.
func (ch *Channel) invariant(format string, a ...interface{}) error {
	err := xerrors.Errorf(format+": %w", append(a, ErrInternalInvariant)...)
	ch.log.Error(
		"ring invariant violated",
		"error", err,
		"capacity", ch.capacity,
		"occupied", ch.occupied,
		"readPos", ch.readPos,
	)
	return err
}
