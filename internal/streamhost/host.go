// Package streamhost carries posted messages over any byte stream as
// length-prefixed frames, so a host and frame can live in separate
// processes connected by a socket or pipe.
package streamhost

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/danmuck/hostlink/internal/channel"
	"github.com/danmuck/hostlink/internal/logging"
	"github.com/danmuck/hostlink/internal/wire"
)

var ErrOriginRequired = errors.New("streamhost: origin required")

// Host is a channel.Host over one stream. Inbound frames are delivered to
// listeners in arrival order on the read goroutine.
type Host struct {
	conn   io.ReadWriteCloser
	origin string
	limits Limits
	log    logging.Sink

	wmu sync.Mutex

	channel.ListenerSet

	done chan struct{}
	err  error
	once sync.Once
}

// New wraps conn and starts reading from it. origin is stamped on every
// outbound frame and matched against the target of inbound ones.
func New(conn io.ReadWriteCloser, origin string, log logging.Sink) (*Host, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return nil, ErrOriginRequired
	}
	if log == nil {
		log = logging.Default()
	}
	h := &Host{
		conn:   conn,
		origin: origin,
		limits: DefaultLimits(),
		log:    log,
		done:   make(chan struct{}),
	}
	go h.readLoop()
	return h, nil
}

func (h *Host) Origin() string {
	return h.origin
}

func (h *Host) PostMessage(msg wire.Message, targetOrigin string) error {
	if msg.Structured != nil {
		body, err := json.Marshal(msg.Structured)
		if err != nil {
			return err
		}
		return h.write(Frame{Kind: KindStructured, Origin: h.origin, Target: targetOrigin, Payload: body})
	}
	if msg.Text == "" {
		return channel.ErrNothingToSend
	}
	return h.PostText(msg.Text, targetOrigin)
}

func (h *Host) PostText(text, targetOrigin string) error {
	return h.write(Frame{Kind: KindText, Origin: h.origin, Target: targetOrigin, Payload: []byte(text)})
}

func (h *Host) write(f Frame) error {
	select {
	case <-h.done:
		return channel.ErrClosed
	default:
	}
	h.wmu.Lock()
	defer h.wmu.Unlock()
	return WriteFrame(h.conn, f, h.limits)
}

// Done is closed once the read side stops.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Err reports why reading stopped; nil after a clean EOF or Close.
func (h *Host) Err() error {
	<-h.done
	return h.err
}

func (h *Host) Close() error {
	err := h.conn.Close()
	<-h.done
	return err
}

func (h *Host) readLoop() {
	var stopErr error
	defer func() {
		h.once.Do(func() {
			h.err = stopErr
			close(h.done)
		})
	}()
	for {
		f, err := ReadFrame(h.conn, h.limits)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, net.ErrClosed) {
				h.log.Warn("streamhost read origin=%s err=%v", h.origin, err)
				stopErr = err
			}
			return
		}
		if f.Target != channel.AnyOrigin && f.Target != h.origin {
			h.log.Trace("streamhost drop target=%q origin=%s", f.Target, h.origin)
			continue
		}
		data, err := decodePayload(f)
		if err != nil {
			h.log.Warn("streamhost drop from=%s err=%v", f.Origin, err)
			continue
		}
		h.Deliver(channel.Inbound{Origin: f.Origin, Data: data})
	}
}

func decodePayload(f Frame) (any, error) {
	if f.Kind == KindText {
		return string(f.Payload), nil
	}
	var msg wire.StructuredMessage
	if err := json.Unmarshal(f.Payload, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}
