package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StructuredMessage is the object shape for namespaced commands.
type StructuredMessage struct {
	Method   string `json:"method"`
	Params   any    `json:"params"`
	Callback string `json:"callback"`
	AppSID   string `json:"appSid"`
}

// Message is one encoded outbound command: exactly one of Text or Structured is set.
type Message struct {
	Text       string
	Structured *StructuredMessage
}

func (m Message) IsStructured() bool {
	return m.Structured != nil
}

// String renders the message for logs.
func (m Message) String() string {
	if m.Structured == nil {
		return m.Text
	}
	data, err := json.Marshal(m.Structured)
	if err != nil {
		return fmt.Sprintf("%+v", *m.Structured)
	}
	return string(data)
}

// Encode builds the wire message for cmd tagged with the correlation id and session id.
func Encode(cmd Command, opts Options, id, appSID string) (Message, error) {
	source, single, present := opts.paramSource()
	switch c := cmd.(type) {
	case StructuredCommand:
		var params any = ""
		if present {
			params = source
		}
		return Message{Structured: &StructuredMessage{
			Method:   c.Method,
			Params:   params,
			Callback: id,
			AppSID:   appSID,
		}}, nil
	case LegacyCommand:
		var encoded string
		if present {
			s, err := legacyParams(source, single, opts.IsRawValue)
			if err != nil {
				return Message{}, err
			}
			encoded = s
		}
		return Message{Text: string(c) + NamespaceSeparator + joinNonEmpty(encoded, id, appSID)}, nil
	default:
		return Message{}, fmt.Errorf("%w: unknown command type %T", ErrMalformedCommand, cmd)
	}
}

// legacyParams serializes params for the text form. Strings are passed through
// when raw or when they are the pre-encoded single option.
func legacyParams(source any, single, raw bool) (string, error) {
	if s, ok := source.(string); ok && (raw || single) {
		return s, nil
	}
	if b, ok := source.([]byte); ok && (raw || single) {
		return string(b), nil
	}
	data, err := json.Marshal(source)
	if err != nil {
		return "", fmt.Errorf("%w: params: %v", ErrUnsupportedValue, err)
	}
	return string(data), nil
}

func joinNonEmpty(fields ...string) string {
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, NamespaceSeparator)
}

// Reply is a decoded inbound message.
type Reply struct {
	ID         string
	Payload    Value
	HasPayload bool
}

// DecodeReply splits <id>:<args> on the first separator; args may contain separators.
func DecodeReply(data string) (Reply, error) {
	id, args, _ := strings.Cut(data, NamespaceSeparator)
	if args == "" {
		return Reply{ID: id}, nil
	}
	payload, err := ParseJSON([]byte(args))
	if err != nil {
		return Reply{ID: id}, fmt.Errorf("%w: id=%q: %v", ErrMalformedReply, id, err)
	}
	return Reply{ID: id, Payload: payload, HasPayload: true}, nil
}

// EncodeReply is the counterpart's reply form. A Null payload is sent as an empty args segment.
func EncodeReply(id string, payload Value) (string, error) {
	if payload.IsNull() {
		return id + NamespaceSeparator, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return id + NamespaceSeparator + string(data), nil
}

// InboundCommand is a command as seen by the receiving side.
type InboundCommand struct {
	Method   string
	Params   Value
	RawParam string
	Callback string
	AppSID   string
}

// DecodeCommand recovers a command on the receiving side. Legacy text is split
// from the right: a trailing appSID (when known) is removed first, then the last
// segment is the callback id and whatever remains is the params text.
func DecodeCommand(msg Message, appSID string) (InboundCommand, error) {
	if msg.Structured != nil {
		s := msg.Structured
		if strings.TrimSpace(s.Method) == "" {
			return InboundCommand{}, fmt.Errorf("%w: missing method", ErrMalformedCommand)
		}
		params, err := FromAny(s.Params)
		if err != nil {
			return InboundCommand{}, err
		}
		return InboundCommand{Method: s.Method, Params: params, Callback: s.Callback, AppSID: s.AppSID}, nil
	}
	name, rest, ok := strings.Cut(msg.Text, NamespaceSeparator)
	if !ok || name == "" {
		return InboundCommand{}, fmt.Errorf("%w: %q", ErrMalformedCommand, msg.Text)
	}
	out := InboundCommand{Method: name}
	if appSID != "" {
		if rest == appSID {
			out.AppSID, rest = appSID, ""
		} else if trimmed, found := strings.CutSuffix(rest, NamespaceSeparator+appSID); found {
			out.AppSID, rest = appSID, trimmed
		}
	}
	if i := strings.LastIndex(rest, NamespaceSeparator); i >= 0 {
		out.RawParam, out.Callback = rest[:i], rest[i+1:]
	} else {
		out.Callback = rest
	}
	if out.RawParam != "" {
		if v, err := ParseJSON([]byte(out.RawParam)); err == nil {
			out.Params = v
		} else {
			out.Params = String(out.RawParam)
		}
	}
	return out, nil
}
