package control

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"
)

// OSCServer accepts transport commands over OSC/UDP:
//
//	/go                               play the standby cue
//	/stop_all /pause_all /resume_all  whole list
//	/cue/start <ref>  /cue/stop <ref>  /cue/pause <ref>
//	/playhead <ref>
//
// No address is a substring of another, since go-osc matches addresses as
// unanchored patterns.
type OSCServer struct {
	addr string
	t    Transport
	d    *osc.StandardDispatcher
}

// NewOSCServer creates a server for addr (host:port) driving t.
func NewOSCServer(addr string, t Transport) *OSCServer {
	s := &OSCServer{addr: addr, t: t, d: osc.NewStandardDispatcher()}

	s.handle("/go", func(*osc.Message) error {
		c, err := t.Go()
		if err == nil {
			log.Info("osc go", "cue", c.ID())
		}
		return err
	})
	s.handle("/stop_all", func(*osc.Message) error { t.StopAll(); return nil })
	s.handle("/pause_all", func(*osc.Message) error { t.PauseAll(); return nil })
	s.handle("/resume_all", func(*osc.Message) error { t.ResumeAll(); return nil })
	s.handleRef("/cue/start", t.PlayCue)
	s.handleRef("/cue/stop", t.StopCue)
	s.handleRef("/cue/pause", t.PauseCue)
	s.handleRef("/playhead", t.SetPlayhead)
	return s
}

// Dispatcher returns the message dispatcher, e.g. to feed it directly.
func (s *OSCServer) Dispatcher() *osc.StandardDispatcher {
	return s.d
}

func (s *OSCServer) handle(addr string, fn func(*osc.Message) error) {
	s.d.AddMsgHandler(addr, func(msg *osc.Message) {
		if err := fn(msg); err != nil {
			log.Warn("osc command failed", "address", msg.Address, "err", err)
		}
	})
}

func (s *OSCServer) handleRef(addr string, fn func(ref string) error) {
	s.handle(addr, func(msg *osc.Message) error {
		ref, err := refArg(msg)
		if err != nil {
			return err
		}
		return fn(ref)
	})
}

// refArg reads a cue reference from the first argument. Numbers are accepted
// so consoles can send cue numbers.
func refArg(msg *osc.Message) (string, error) {
	if len(msg.Arguments) == 0 {
		return "", errors.New("missing cue argument")
	}
	switch v := msg.Arguments[0].(type) {
	case string:
		return v, nil
	case int32:
		return fmt.Sprint(v), nil
	case int64:
		return fmt.Sprint(v), nil
	case float32:
		return fmt.Sprint(v), nil
	case float64:
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("unsupported cue argument %T", msg.Arguments[0])
}

// Run serves until ctx is done.
func (s *OSCServer) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return fmt.Errorf("osc listen %s: %w", s.addr, err)
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	log.Info("osc listening", "addr", conn.LocalAddr())
	server := &osc.Server{Addr: s.addr, Dispatcher: s.d}
	err = server.Serve(conn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
