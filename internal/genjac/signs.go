package genjac

// SignSource resolves the sign of kinks whose argument perturbation is
// exactly zero. Next returns ok == false once the source is exhausted.
type SignSource interface {
	Next() (positive, ok bool)
}

// BitSigns reads signs from a packed bit sequence, least significant bit
// of each byte first. A set bit selects the positive branch.
type BitSigns struct {
	bits []byte
	idx  int
}

// NewBitSigns returns a finite sign source over bits.
func NewBitSigns(bits []byte) *BitSigns {
	return &BitSigns{bits: bits}
}

// Next returns the next bit.
func (b *BitSigns) Next() (positive, ok bool) {
	byteIdx := b.idx / 8
	if byteIdx >= len(b.bits) {
		return false, false
	}
	bit := b.idx % 8
	b.idx++
	return b.bits[byteIdx]&(1<<bit) != 0, true
}

// Remaining returns the number of unread bits.
func (b *BitSigns) Remaining() int {
	return len(b.bits)*8 - b.idx
}

// ConstantSigns always yields the same sign and is never exhausted.
type ConstantSigns bool

// Next returns the constant sign.
func (c ConstantSigns) Next() (positive, ok bool) {
	return bool(c), true
}
