package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordParser consumes records made of a length byte followed by that many
// bytes, the way a tag parser only consumes whole tags
type recordParser struct {
	next    int64
	records [][]byte
	calls   int
}

func (p *recordParser) consume(chunk []byte, byteStart int64) int {
	p.calls++
	if byteStart != p.next {
		panic("non contiguous byteStart")
	}
	off := 0
	for off < len(chunk) {
		n := int(chunk[off])
		if len(chunk)-off < 1+n {
			break
		}
		p.records = append(p.records, append([]byte(nil), chunk[off+1:off+1+n]...))
		off += 1 + n
	}
	p.next += int64(off)
	return off
}

func recordStream(count int) []byte {
	var b bytes.Buffer
	for i := 0; i < count; i++ {
		n := i % 37
		b.WriteByte(byte(n))
		for j := 0; j < n; j++ {
			b.WriteByte(byte(i + j))
		}
	}
	return b.Bytes()
}

func submitInSteps(a *Assembler, stream []byte, step int) {
	for i := 0; i < len(stream); i += step {
		end := i + step
		if end > len(stream) {
			end = len(stream)
		}
		a.Submit(stream[i:end], int64(i))
	}
}

func TestAssemblerChunkBoundaries(t *testing.T) {
	stream := recordStream(300)

	whole := &recordParser{}
	a := NewAssembler(16, 64, whole.consume)
	a.Submit(stream, 0)
	require.Len(t, whole.records, 300)

	for _, step := range []int{1, 2, 5, 17, 100, 1000} {
		p := &recordParser{}
		a := NewAssembler(16, 64, p.consume)
		submitInSteps(a, stream, step)
		assert.Equal(t, whole.records, p.records, "step %d", step)
		held, _ := a.Held()
		assert.Empty(t, held, "step %d", step)
	}
}

func TestAssemblerOneParsePerSubmit(t *testing.T) {
	p := &recordParser{}
	a := NewAssembler(16, 64, p.consume)
	a.Submit([]byte{3, 1}, 0)
	a.Submit([]byte{2}, 2)
	a.Submit([]byte{3}, 3)
	assert.Equal(t, 3, p.calls)
	assert.Len(t, p.records, 1)
}

func TestAssemblerHeldBytes(t *testing.T) {
	p := &recordParser{}
	a := NewAssembler(16, 64, p.consume)

	a.Submit([]byte{2, 0xaa, 0xbb, 4, 0x01}, 0)
	held, start := a.Held()
	assert.Equal(t, []byte{4, 0x01}, held)
	assert.Equal(t, int64(3), start)

	a.Submit([]byte{0x02, 0x03}, 5)
	held, start = a.Held()
	assert.Equal(t, []byte{4, 0x01, 0x02, 0x03}, held)
	assert.Equal(t, int64(3), start)

	a.Submit([]byte{0x04, 1}, 7)
	held, start = a.Held()
	assert.Equal(t, []byte{1}, held)
	assert.Equal(t, int64(8), start)
	assert.Equal(t, [][]byte{{0xaa, 0xbb}, {0x01, 0x02, 0x03, 0x04}}, p.records)
}

func TestAssemblerGrowthKeepsHeldBytes(t *testing.T) {
	never := func([]byte, int64) int { return 0 }
	a := NewAssembler(16, 32, never)
	assert.Equal(t, 32, a.Capacity())

	var sent []byte
	for i := 0; i < 5; i++ {
		chunk := bytes.Repeat([]byte{byte(i + 1)}, 10)
		a.Submit(chunk, int64(len(sent)))
		sent = append(sent, chunk...)
	}
	held, start := a.Held()
	assert.Equal(t, sent, held)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, 16+growthPadding, a.Capacity())

	big := bytes.Repeat([]byte{0x5a}, 2*1024*1024)
	a.Submit(big, int64(len(sent)))
	sent = append(sent, big...)
	held, _ = a.Held()
	assert.True(t, bytes.Equal(sent, held))
	assert.Equal(t, 16<<17+growthPadding, a.Capacity())
}

func TestAssemblerGrowthFromEmpty(t *testing.T) {
	half := func(chunk []byte, _ int64) int { return len(chunk) / 2 }
	a := NewAssembler(16, 8, half)
	chunk := bytes.Repeat([]byte{7}, 40)
	a.Submit(chunk, 100)
	held, start := a.Held()
	assert.Equal(t, chunk[20:], held)
	assert.Equal(t, int64(120), start)
	assert.Equal(t, 16+growthPadding, a.Capacity())
}

func TestAssemblerDefaults(t *testing.T) {
	a := NewAssembler(0, 0, func([]byte, int64) int { return 0 })
	assert.Equal(t, DefaultBufferSize, a.Capacity())
	assert.Equal(t, DefaultStashSize, a.stashSize)
}

func TestAssemblerFlush(t *testing.T) {
	p := &recordParser{}
	a := NewAssembler(16, 64, p.consume)
	assert.Equal(t, 0, a.Flush(true))

	a.Submit([]byte{1, 9, 5, 1, 2}, 0)
	assert.Equal(t, 3, a.Flush(false))
	held, start := a.Held()
	assert.Equal(t, []byte{5, 1, 2}, held)
	assert.Equal(t, int64(2), start)

	assert.Equal(t, 3, a.Flush(true))
	held, _ = a.Held()
	assert.Empty(t, held)
	assert.Equal(t, [][]byte{{9}}, p.records)
}

func TestAssemblerFlushConsumesRest(t *testing.T) {
	calls := 0
	lazy := func(chunk []byte, _ int64) int {
		calls++
		if calls == 1 {
			return 0
		}
		return len(chunk)
	}
	a := NewAssembler(16, 64, lazy)
	a.Submit([]byte{1, 2, 3}, 0)
	assert.Equal(t, 0, a.Flush(true))
	held, _ := a.Held()
	assert.Empty(t, held)
}
