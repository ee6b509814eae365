// Package ringbuf implements a fixed-capacity circular buffer of audio samples.
package ringbuf

// Buffer is a circular buffer of float32 samples. When a write would exceed
// the capacity the oldest samples are dropped; the buffer never grows.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	buf   []float32
	read  int // read pointer
	write int // write pointer
	used  int // unread samples
}

// New creates a buffer holding at most capacity samples.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{buf: make([]float32, capacity)}
}

// Cap returns the buffer capacity in samples.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Len returns the number of unread samples.
func (b *Buffer) Len() int {
	return b.used
}

// Free returns how many samples can be written without dropping data.
func (b *Buffer) Free() int {
	return len(b.buf) - b.used
}

// Write appends count samples taken from data every stride elements
// (data[0], data[stride], ...). count is limited to what data actually holds.
// Writing more than the free space drops the oldest samples; writing more than
// the capacity keeps only the most recent Cap() samples. Returns the number of
// samples taken from data that are now stored.
func (b *Buffer) Write(data []float32, count, stride int) int {
	if stride < 1 {
		stride = 1
	}
	if avail := (len(data) + stride - 1) / stride; count > avail {
		count = avail
	}
	if count <= 0 {
		return 0
	}

	capacity := len(b.buf)
	if count > capacity {
		data = data[(count-capacity)*stride:]
		count = capacity
	}
	if over := b.used + count - capacity; over > 0 {
		b.Skip(over)
	}

	first := capacity - b.write
	if first > count {
		first = count
	}
	b.put(b.write, data, first, stride)
	if rest := count - first; rest > 0 {
		b.put(0, data[first*stride:], rest, stride)
	}

	b.write = (b.write + count) % capacity
	b.used += count
	return count
}

// Read moves up to count unread samples into data, one every stride elements.
// A request larger than Len() is a short read, not an error. Returns the
// number of samples read.
func (b *Buffer) Read(data []float32, count, stride int) int {
	if stride < 1 {
		stride = 1
	}
	if fit := (len(data) + stride - 1) / stride; count > fit {
		count = fit
	}
	if count > b.used {
		count = b.used
	}
	if count <= 0 {
		return 0
	}

	first := len(b.buf) - b.read
	if first > count {
		first = count
	}
	b.get(b.read, data, first, stride)
	if rest := count - first; rest > 0 {
		b.get(0, data[first*stride:], rest, stride)
	}

	b.read = (b.read + count) % len(b.buf)
	b.used -= count
	if b.used == 0 {
		b.read, b.write = 0, 0
	}
	return count
}

// Skip discards up to count unread samples without copying them. Skipping
// everything that is buffered is the same as Reset. Returns the number of
// samples discarded.
func (b *Buffer) Skip(count int) int {
	if count <= 0 {
		return 0
	}
	if count >= b.used {
		n := b.used
		b.Reset()
		return n
	}
	b.read = (b.read + count) % len(b.buf)
	b.used -= count
	return count
}

// Reset discards all buffered samples.
func (b *Buffer) Reset() {
	b.read, b.write, b.used = 0, 0, 0
}

func (b *Buffer) put(at int, data []float32, n, stride int) {
	if n <= 0 {
		return
	}
	if stride == 1 {
		copy(b.buf[at:at+n], data[:n])
		return
	}
	for i := 0; i < n; i++ {
		b.buf[at+i] = data[i*stride]
	}
}

func (b *Buffer) get(at int, data []float32, n, stride int) {
	if n <= 0 {
		return
	}
	if stride == 1 {
		copy(data[:n], b.buf[at:at+n])
		return
	}
	for i := 0; i < n; i++ {
		data[i*stride] = b.buf[at+i]
	}
}
