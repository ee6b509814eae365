package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrFormat is returned for files whose extension has no decoder.
var ErrFormat = errors.New("unsupported audio format")

// FileSource is a Source backed by a beep decoder.
type FileSource struct {
	stream beep.StreamSeekCloser
	format beep.Format
	pairs  [][2]float64
}

// OpenFile decodes a WAV, MP3, FLAC or Ogg Vorbis file. It satisfies Opener.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		stream, format, err = wav.Decode(f)
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	case ".flac":
		stream, format, err = flac.Decode(f)
	case ".ogg", ".oga":
		stream, format, err = vorbis.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %q", ErrFormat, ext)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return &FileSource{
		stream: stream,
		format: format,
		pairs:  make([][2]float64, 512),
	}, nil
}

// Channels is 1 for mono files and 2 otherwise; beep always delivers pairs.
func (s *FileSource) Channels() int {
	if s.format.NumChannels == 1 {
		return 1
	}
	return 2
}

func (s *FileSource) SampleRate() int {
	return int(s.format.SampleRate)
}

func (s *FileSource) Length() time.Duration {
	return s.format.SampleRate.D(s.stream.Len())
}

func (s *FileSource) Seek(t time.Duration) error {
	pos := s.format.SampleRate.N(t)
	if pos < 0 {
		pos = 0
	}
	if n := s.stream.Len(); pos > n {
		pos = n
	}
	return s.stream.Seek(pos)
}

func (s *FileSource) Read(buf []float32, frames int) int {
	ch := s.Channels()
	if limit := len(buf) / ch; frames > limit {
		frames = limit
	}

	done := 0
	for done < frames {
		want := frames - done
		if want > len(s.pairs) {
			want = len(s.pairs)
		}
		n, ok := s.stream.Stream(s.pairs[:want])
		for i := 0; i < n; i++ {
			out := buf[(done+i)*ch:]
			out[0] = float32(s.pairs[i][0])
			if ch == 2 {
				out[1] = float32(s.pairs[i][1])
			}
		}
		done += n
		if !ok || n == 0 {
			break
		}
	}
	return done
}

func (s *FileSource) Close() error {
	return s.stream.Close()
}
