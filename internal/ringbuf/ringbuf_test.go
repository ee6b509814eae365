package ringbuf

import "testing"

func seq(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	b := New(8)
	in := seq(1, 8)
	if n := b.Write(in, len(in), 1); n != 8 {
		t.Fatalf("Write = %d, want 8", n)
	}
	out := make([]float32, 8)
	if n := b.Read(out, 8, 1); n != 8 {
		t.Fatalf("Read = %d, want 8", n)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
}

func TestRoundTripAcrossWrap(t *testing.T) {
	// Every split of a 7-sample write/read, with the pointers parked at every
	// offset of a 10-sample ring. One filler sample stays live so the pointers
	// are not rewound by an empty buffer.
	for offset := 1; offset < 10; offset++ {
		for split := 0; split <= 7; split++ {
			b := New(10)
			b.Write(make([]float32, offset), offset, 1)
			b.Read(make([]float32, offset), offset-1, 1)

			in := seq(100, 7)
			b.Write(in[:split], split, 1)
			b.Write(in[split:], 7-split, 1)
			b.Skip(1)

			out := make([]float32, 7)
			got := b.Read(out[:split], split, 1)
			got += b.Read(out[split:], 7-split, 1)
			if got != 7 {
				t.Fatalf("offset %d split %d: read %d, want 7", offset, split, got)
			}
			for i := range in {
				if out[i] != in[i] {
					t.Errorf("offset %d split %d: out[%d] = %v, want %v", offset, split, i, out[i], in[i])
				}
			}
		}
	}
}

func TestOverflowKeepsMostRecent(t *testing.T) {
	b := New(4)
	in := seq(0, 10)
	if n := b.Write(in, 10, 1); n != 4 {
		t.Errorf("Write = %d, want 4", n)
	}
	out := make([]float32, 10)
	n := b.Read(out, 10, 1)
	if n != 4 {
		t.Fatalf("Read = %d, want 4", n)
	}
	for i, want := range []float32{6, 7, 8, 9} {
		if out[i] != want {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
}

func TestOverflowDropsOldestOnPartialFill(t *testing.T) {
	b := New(5)
	b.Write(seq(0, 3), 3, 1)
	b.Write(seq(3, 4), 4, 1) // 7 total, 2 oldest dropped
	if b.Len() != 5 {
		t.Fatalf("Len = %d, want 5", b.Len())
	}
	out := make([]float32, 5)
	b.Read(out, 5, 1)
	for i, want := range []float32{2, 3, 4, 5, 6} {
		if out[i] != want {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
}

func TestShortRead(t *testing.T) {
	b := New(8)
	b.Write(seq(0, 3), 3, 1)
	out := make([]float32, 8)
	if n := b.Read(out, 8, 1); n != 3 {
		t.Errorf("Read = %d, want 3", n)
	}
	if n := b.Read(out, 8, 1); n != 0 {
		t.Errorf("Read on empty = %d, want 0", n)
	}
}

func TestStridedWriteRead(t *testing.T) {
	// Interleaved stereo: write the left channel only, read it back into the right slot.
	interleaved := []float32{1, -1, 2, -2, 3, -3}
	b := New(4)
	if n := b.Write(interleaved, 3, 2); n != 3 {
		t.Fatalf("Write = %d, want 3", n)
	}
	out := make([]float32, 6)
	if n := b.Read(out[1:], 3, 2); n != 3 {
		t.Fatalf("Read = %d, want 3", n)
	}
	want := []float32{0, 1, 0, 2, 0, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestWriteNeverReadsPastData(t *testing.T) {
	b := New(16)
	data := []float32{1, 2, 3}
	if n := b.Write(data, 10, 2); n != 2 {
		t.Errorf("Write = %d, want 2 (samples at index 0 and 2)", n)
	}
}

func TestSkip(t *testing.T) {
	b := New(6)
	b.Write(seq(0, 5), 5, 1)
	if n := b.Skip(2); n != 2 {
		t.Errorf("Skip = %d, want 2", n)
	}
	if b.Len() != 3 {
		t.Errorf("Len = %d, want 3", b.Len())
	}
	out := make([]float32, 1)
	b.Read(out, 1, 1)
	if out[0] != 2 {
		t.Errorf("first after skip = %v, want 2", out[0])
	}
	if n := b.Skip(100); n != 2 {
		t.Errorf("Skip past end = %d, want 2", n)
	}
	if b.Len() != 0 || b.Free() != 6 {
		t.Errorf("after full skip Len=%d Free=%d, want 0 and 6", b.Len(), b.Free())
	}
}

func TestReset(t *testing.T) {
	b := New(4)
	b.Write(seq(0, 3), 3, 1)
	b.Reset()
	if b.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", b.Len())
	}
	b.Write(seq(9, 4), 4, 1)
	out := make([]float32, 4)
	b.Read(out, 4, 1)
	if out[0] != 9 || out[3] != 12 {
		t.Errorf("after Reset got %v, want 9..12", out)
	}
}
