package stream

import (
	"context"
	"io"
	"net/http"
	"os/exec"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/satindergrewal/cuedeck/internal/audio"
)

// HTTPHandler serves the monitor mix as a chunked MP3 stream. Each
// connection runs its own FFmpeg encoder.
type HTTPHandler struct {
	broadcaster *Broadcaster
	name        string
	bitrate     string
}

// NewHTTPHandler creates an HTTP monitor handler. name is sent as ICY-Name.
func NewHTTPHandler(b *Broadcaster, name string) *HTTPHandler {
	return &HTTPHandler{broadcaster: b, name: name, bitrate: "192k"}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ICY-Name", h.name)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", encoderArgs(h.bitrate)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Error("monitor stream: stdin pipe", "err", err)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Error("monitor stream: stdout pipe", "err", err)
		return
	}
	if err := cmd.Start(); err != nil {
		log.Error("monitor stream: ffmpeg start", "err", err)
		return
	}

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	log.Info("monitor listener connected", "remote", r.RemoteAddr, "listeners", h.broadcaster.ListenerCount())
	defer log.Info("monitor listener disconnected", "remote", r.RemoteAddr)

	go feed(ctx, listener, stdin)

	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				break
			}
			flusher.Flush()
		}
		if err != nil {
			if err != io.EOF {
				log.Warn("monitor stream: ffmpeg read", "err", err)
			}
			break
		}
	}

	cmd.Wait()
}

// encoderArgs has FFmpeg read s16le monitor frames on stdin and write MP3 on
// stdout.
func encoderArgs(bitrate string) []string {
	return []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", "2",
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", bitrate,
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	}
}

// feed copies listener frames as PCM bytes into w until the listener or ctx
// ends.
func feed(ctx context.Context, l *Listener, w io.WriteCloser) {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.Done():
			return
		case frame, ok := <-l.C:
			if !ok {
				return
			}
			if _, err := w.Write(audio.SamplesToBytes(frame)); err != nil {
				return
			}
		}
	}
}
