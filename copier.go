package ringchan

// Copier moves bytes between ring storage and caller-supplied memory. Each
// method reports how many bytes it actually moved: anything less than
// min(len(dst), len(src)) means the caller region is not (fully) accessible.
// It must never report more. Calls are made with the gate held, so an
// implementation sees no concurrent calls from the same Channel.
type Copier interface {
	CopyIn(storage, src []byte) int
	CopyOut(dst, storage []byte) int
}

// MemCopier is the default Copier, caller memory is always fully accessible.
type MemCopier struct{}

func (MemCopier) CopyIn(storage, src []byte) int  { return copy(storage, src) }
func (MemCopier) CopyOut(dst, storage []byte) int { return copy(dst, storage) }

// FaultCopier behaves like MemCopier until Remaining bytes have been moved,
// then every further call moves nothing. It models a caller region that turns
// invalid part way through, and is mainly useful for exercising partial
// transfers. The zero value faults immediately.
type FaultCopier struct {
	Remaining int
}

func (fc *FaultCopier) CopyIn(storage, src []byte) int {
	return fc.move(storage, src)
}

func (fc *FaultCopier) CopyOut(dst, storage []byte) int {
	return fc.move(dst, storage)
}

func (fc *FaultCopier) move(dst, src []byte) int {
	if len(src) > fc.Remaining {
		src = src[:fc.Remaining]
	}
	n := copy(dst, src)
	fc.Remaining -= n
	return n
}
