// Package responder is the frame side of the channel: it decodes inbound
// commands, runs a handler and answers with <id>:<json> replies.
package responder

import (
	"errors"
	"strings"
	"sync"

	"github.com/danmuck/hostlink/internal/channel"
	"github.com/danmuck/hostlink/internal/logging"
	"github.com/danmuck/hostlink/internal/wire"
)

var ErrNoCallback = errors.New("responder: command has no callback id")

// Handler answers one command. A Null result is sent as an empty reply.
type Handler func(cmd wire.InboundCommand) (wire.Value, error)

// Poster is the send half of a host that can carry raw reply text.
type Poster interface {
	PostText(text, targetOrigin string) error
}

// Host is what a Responder attaches to.
type Host interface {
	channel.Host
	Poster
}

// Responder answers commands arriving from one trusted origin.
type Responder struct {
	host    Host
	trusted string
	appSID  string
	handle  Handler
	log     logging.Sink

	mu     sync.Mutex
	remove func()
}

func New(host Host, trustedOrigin, appSID string, handle Handler, log logging.Sink) *Responder {
	if log == nil {
		log = logging.Default()
	}
	return &Responder{
		host:    host,
		trusted: strings.TrimSpace(trustedOrigin),
		appSID:  appSID,
		handle:  handle,
		log:     log,
	}
}

func (r *Responder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.remove != nil {
		return
	}
	r.remove = r.host.AddListener(r.receive)
}

func (r *Responder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.remove != nil {
		r.remove()
		r.remove = nil
	}
}

// Emit sends an unsolicited event for id, serviced by the sender's persistent callback.
func (r *Responder) Emit(id string, payload wire.Value) error {
	if id == "" {
		return ErrNoCallback
	}
	text, err := wire.EncodeReply(id, payload)
	if err != nil {
		return err
	}
	return r.host.PostText(text, r.trusted)
}

func (r *Responder) receive(in channel.Inbound) {
	if in.Origin != r.trusted {
		r.log.Trace("responder drop origin=%q", in.Origin)
		return
	}
	var msg wire.Message
	switch t := in.Data.(type) {
	case string:
		msg.Text = t
	case wire.StructuredMessage:
		msg.Structured = &t
	default:
		r.log.Trace("responder drop payload type=%T", in.Data)
		return
	}
	cmd, err := wire.DecodeCommand(msg, r.appSID)
	if err != nil {
		r.log.Warn("responder decode err=%v", err)
		return
	}
	// replies are sent off the delivery goroutine so hosts that deliver
	// inside a request handler are not blocked on their own peer
	go r.answer(cmd)
}

func (r *Responder) answer(cmd wire.InboundCommand) {
	result, err := r.handle(cmd)
	if err != nil {
		r.log.Error("responder method=%q id=%s err=%v", cmd.Method, cmd.Callback, err)
		result = wire.MustFromAny(map[string]any{"error": err.Error()})
	}
	if cmd.Callback == "" {
		return
	}
	if err := r.Emit(cmd.Callback, result); err != nil {
		r.log.Error("responder reply method=%q id=%s err=%v", cmd.Method, cmd.Callback, err)
		return
	}
	r.log.Info("responder replied method=%q id=%s", cmd.Method, cmd.Callback)
}

// Echo answers {"ok": true, "method": ..., "params": ...}.
func Echo(cmd wire.InboundCommand) (wire.Value, error) {
	return wire.Map(map[string]wire.Value{
		"ok":     wire.Bool(true),
		"method": wire.String(cmd.Method),
		"params": cmd.Params,
	}), nil
}
