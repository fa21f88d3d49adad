package secretcapture

import "strings"

// BufferSize is the number of most recent digit presses kept for
// comparison. Secrets longer than this can never match.
const BufferSize = 12

// DigitRing is a fixed-capacity FIFO of digit characters. When full, a
// push evicts the oldest digit.
type DigitRing struct {
	digits [BufferSize]byte
	start  int
	count  int
}

// Push appends d, evicting the oldest digit if the ring is full.
func (r *DigitRing) Push(d byte) {
	if r.count < BufferSize {
		r.digits[(r.start+r.count)%BufferSize] = d
		r.count++
		return
	}
	r.digits[r.start] = d
	r.start = (r.start + 1) % BufferSize
}

// String joins the buffered digits oldest first.
func (r *DigitRing) String() string {
	var b strings.Builder
	b.Grow(r.count)
	for i := 0; i < r.count; i++ {
		b.WriteByte(r.digits[(r.start+i)%BufferSize])
	}
	return b.String()
}

// Len returns the number of buffered digits.
func (r *DigitRing) Len() int {
	return r.count
}

// Reset empties the ring.
func (r *DigitRing) Reset() {
	r.start = 0
	r.count = 0
}
