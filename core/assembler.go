package core

import (
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultStashSize is the base of the buffer growth policy
	DefaultStashSize = 384 * 1024
	// DefaultBufferSize is the initial reassembly buffer capacity
	DefaultBufferSize = 3 * 1024 * 1024

	growthPadding = 1024 * 1024
)

// ConsumeFunc parses chunk, whose first byte sits at byteStart in the
// stream, and returns how many bytes it consumed
type ConsumeFunc func(chunk []byte, byteStart int64) int

// Assembler re-presents arbitrarily sliced chunks to a parser, keeping
// whatever the parser did not consume for the next round. It is not safe for
// concurrent use.
type Assembler struct {
	stashSize int
	consume   ConsumeFunc

	buf       []byte
	used      int
	byteStart int64
}

// NewAssembler returns an Assembler feeding consume. Non-positive sizes fall
// back to the defaults.
func NewAssembler(stashSize, bufferSize int, consume ConsumeFunc) *Assembler {
	if stashSize <= 0 {
		stashSize = DefaultStashSize
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Assembler{
		stashSize: stashSize,
		consume:   consume,
		buf:       make([]byte, bufferSize),
	}
}

// Submit hands chunk to the parser together with any held bytes. The parser
// runs exactly once per call. chunk is not retained.
func (a *Assembler) Submit(chunk []byte, byteStart int64) {
	if a.used == 0 {
		consumed := a.dispatch(chunk, byteStart)
		remain := len(chunk) - consumed
		if remain == 0 {
			return
		}
		if remain > len(a.buf) {
			a.expand(remain)
		}
		copy(a.buf, chunk[consumed:])
		a.used = remain
		a.byteStart = byteStart + int64(consumed)
		return
	}

	if expect := a.byteStart + int64(a.used); byteStart != expect {
		log.Warnf("Assembler: chunk at %d is not contiguous with held bytes ending at %d", byteStart, expect)
	}
	if a.used+len(chunk) > len(a.buf) {
		a.expand(a.used + len(chunk))
	}
	copy(a.buf[a.used:], chunk)
	a.used += len(chunk)
	a.dispatchHeld()
}

// Flush makes one last parse attempt on the held bytes and returns how many
// remain unconsumed. With drop they are discarded, otherwise they stay held.
func (a *Assembler) Flush(drop bool) int {
	if a.used == 0 {
		return 0
	}
	remain := a.dispatchHeld()
	if remain > 0 && !drop {
		return remain
	}
	if remain > 0 {
		log.Warnf("%d bytes unconsumed data remain when flush buffer, dropped", remain)
	}
	a.used = 0
	a.byteStart = 0
	return remain
}

// Held returns the bytes not consumed yet and the stream offset of the
// first one. The slice is only valid until the next Submit or Flush.
func (a *Assembler) Held() ([]byte, int64) {
	return a.buf[:a.used], a.byteStart
}

// Capacity returns the reassembly buffer capacity
func (a *Assembler) Capacity() int {
	return len(a.buf)
}

func (a *Assembler) dispatch(chunk []byte, byteStart int64) int {
	consumed := a.consume(chunk, byteStart)
	if consumed < 0 {
		consumed = 0
	} else if consumed > len(chunk) {
		log.Errorf("Assembler: parser consumed %d of %d bytes", consumed, len(chunk))
		consumed = len(chunk)
	}
	return consumed
}

// dispatchHeld parses the held bytes, shifts the unconsumed tail to the
// front and returns its length
func (a *Assembler) dispatchHeld() int {
	consumed := a.dispatch(a.buf[:a.used], a.byteStart)
	if consumed > 0 {
		copy(a.buf, a.buf[consumed:a.used])
		a.used -= consumed
		a.byteStart += int64(consumed)
	}
	return a.used
}

// expand grows the buffer to stashSize*2^k + 1MiB, the smallest such value
// holding expected bytes. Held bytes are preserved.
func (a *Assembler) expand(expected int) {
	size := a.stashSize
	for size+growthPadding < expected {
		size *= 2
	}
	size += growthPadding
	if size <= len(a.buf) {
		return
	}
	buf := make([]byte, size)
	copy(buf, a.buf[:a.used])
	log.Debugf("Assembler: buffer expanded %d -> %d", len(a.buf), size)
	a.buf = buf
}
