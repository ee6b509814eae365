package resample

import (
	"errors"
	"math"
	"testing"
)

// ramp returns stereo frames where left = i/1000 and right = -i/1000.
func ramp(frames int) []float32 {
	out := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		out[i*2] = float32(i) / 1000
		out[i*2+1] = -float32(i) / 1000
	}
	return out
}

func drain(b *Bridge, chunk int) []float32 {
	var all []float32
	buf := make([]float32, chunk*b.Channels())
	for {
		n := b.Frames(buf, chunk)
		if n == 0 {
			return all
		}
		all = append(all, buf[:n*b.Channels()]...)
	}
}

func pushChunked(b *Bridge, in []float32, chunk int) []float32 {
	var out []float32
	frames := len(in) / 2
	for start := 0; start < frames; start += chunk {
		end := start + chunk
		if end > frames {
			end = frames
		}
		b.Push(in[start*2:end*2], end-start)
		out = append(out, drain(b, 64)...)
	}
	b.Push(nil, 0)
	return append(out, drain(b, 64)...)
}

func TestUpsample44100To48000(t *testing.T) {
	b, err := New(44100, 48000, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := pushChunked(b, ramp(1000), 37)

	frames := len(out) / 2
	want := 1000.0 * 48000 / 44100
	if math.Abs(float64(frames)-want) > 2 {
		t.Errorf("output frames = %d, want %.1f +/- 2", frames, want)
	}

	step := 44100.0 / 48000.0
	for k := 0; k < frames; k++ {
		pos := float64(k) * step
		if pos > 999 {
			pos = 999 // tail holds the last input frame
		}
		wantL := pos / 1000
		if diff := math.Abs(float64(out[k*2]) - wantL); diff > 1e-4 {
			t.Fatalf("frame %d left = %v, want %v", k, out[k*2], wantL)
		}
		if diff := math.Abs(float64(out[k*2+1]) + wantL); diff > 1e-4 {
			t.Fatalf("frame %d right = %v, want %v", k, out[k*2+1], -wantL)
		}
	}
}

func TestChunkingDoesNotChangeOutput(t *testing.T) {
	in := ramp(1000)
	whole, _ := New(44100, 48000, 2)
	ref := pushChunked(whole, in, 1000)

	for _, chunk := range []int{1, 7, 64, 333, 999} {
		b, _ := New(44100, 48000, 2)
		got := pushChunked(b, in, chunk)
		if len(got) != len(ref) {
			t.Errorf("chunk %d: %d samples, want %d", chunk, len(got), len(ref))
			continue
		}
		for i := range ref {
			if math.Abs(float64(got[i]-ref[i])) > 1e-5 {
				t.Errorf("chunk %d: sample %d = %v, want %v", chunk, i, got[i], ref[i])
				break
			}
		}
	}
}

func TestDownsampleFrameCount(t *testing.T) {
	b, err := New(48000, 44100, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := make([]float32, 4800)
	b.Push(in, len(in))
	b.Push(nil, 0)
	got := len(drain(b, 256))
	if want := 4410; got < want-2 || got > want+2 {
		t.Errorf("output frames = %d, want about %d", got, want)
	}
}

func TestSameRatePassesThrough(t *testing.T) {
	b, _ := New(48000, 48000, 1)
	in := []float32{0.1, 0.2, 0.3, 0.4}
	b.Push(in, 4)
	b.Push(nil, 0)
	out := drain(b, 16)
	if len(out) != 4 {
		t.Fatalf("got %d frames, want 4", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestFramesPartialRequest(t *testing.T) {
	b, _ := New(48000, 48000, 2)
	b.Push(ramp(10), 10)
	buf := make([]float32, 8)
	if n := b.Frames(buf, 4); n != 4 {
		t.Errorf("Frames = %d, want 4", n)
	}
	if n := b.Frames(buf, 100); n != 4 {
		t.Errorf("Frames limited by buf = %d, want 4", n)
	}
}

func TestConstructionFails(t *testing.T) {
	tests := []struct {
		in, out, ch int
		want        error
	}{
		{0, 48000, 2, ErrRate},
		{44100, -1, 2, ErrRate},
		{44100, 48000, 0, ErrChannels},
	}
	for _, tt := range tests {
		b, err := New(tt.in, tt.out, tt.ch)
		if b != nil {
			t.Errorf("New(%d, %d, %d) returned an instance", tt.in, tt.out, tt.ch)
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("New(%d, %d, %d) err = %v, want %v", tt.in, tt.out, tt.ch, err, tt.want)
		}
	}
}

func TestResetDropsBufferedOutput(t *testing.T) {
	b, _ := New(44100, 48000, 2)
	b.Push(ramp(100), 100)
	if b.Buffered() == 0 {
		t.Fatal("expected buffered frames after push")
	}
	b.Reset()
	if b.Buffered() != 0 {
		t.Errorf("Buffered after Reset = %d, want 0", b.Buffered())
	}
}

func monoRamp(frames int) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestLargeUpsamplePushKeepsEverything(t *testing.T) {
	b, err := New(8000, 96000, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := b.Push(monoRamp(1024), 1024)
	if want := 1023 * 12; got < want {
		t.Fatalf("buffered = %d, want at least %d", got, want)
	}

	out := make([]float32, 1)
	b.Frames(out, 1)
	if out[0] != 0 {
		t.Errorf("first frame = %v, want 0", out[0])
	}
}

func TestRoomBoundedPushesDoNotGrow(t *testing.T) {
	b, err := New(8000, 96000, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	capacity := b.ring.Cap()
	in := monoRamp(4000)
	var out []float32
	buf := make([]float32, 1024)

	for pos := 0; pos < len(in); {
		n := min(1024, b.Room(), len(in)-pos)
		if n == 0 {
			t.Fatalf("Room = 0 with %d frames buffered", b.Buffered())
		}
		b.Push(in[pos:pos+n], n)
		pos += n
		for b.Buffered() >= 1024 {
			out = append(out, buf[:b.Frames(buf, 1024)]...)
		}
	}
	b.Push(nil, 0)
	for {
		n := b.Frames(buf, 1024)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}

	if b.ring.Cap() != capacity {
		t.Errorf("capacity grew from %d to %d", capacity, b.ring.Cap())
	}
	for k, v := range out {
		want := min(float64(k)/12, 3999)
		if math.Abs(float64(v)-want) > 1e-3 {
			t.Fatalf("frame %d = %v, want %v", k, v, want)
		}
	}
	if len(out) < 3999*12 {
		t.Errorf("output frames = %d, want at least %d", len(out), 3999*12)
	}
}
