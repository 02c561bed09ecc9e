package streamhost

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic          uint32 = 0x484C4E4B
	Version        uint16 = 1
	FixedHeaderLen        = 16
)

// Kind says how the payload of a frame is to be delivered.
type Kind uint16

const (
	KindText       Kind = 1
	KindStructured Kind = 2
)

var (
	ErrShortHeader        = errors.New("streamhost: short fixed header")
	ErrBadMagic           = errors.New("streamhost: bad magic")
	ErrUnsupportedVersion = errors.New("streamhost: unsupported version")
	ErrUnknownKind        = errors.New("streamhost: unknown frame kind")
	ErrOriginTooLarge     = errors.New("streamhost: origin too large")
	ErrPayloadTooLarge    = errors.New("streamhost: payload too large")
)

// Header is the fixed wire header.
type Header struct {
	Magic      uint32
	Version    uint16
	Kind       Kind
	OriginLen  uint16
	TargetLen  uint16
	PayloadLen uint32
}

// Frame is one posted message: who sent it, who it is for, and its body.
type Frame struct {
	Kind    Kind
	Origin  string
	Target  string
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxOriginBytes  int
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxOriginBytes:  2 * 1024,
		MaxPayloadBytes: 4 * 1024 * 1024,
	}
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if int(h.OriginLen) > limits.MaxOriginBytes || int(h.TargetLen) > limits.MaxOriginBytes {
		return Frame{}, ErrOriginTooLarge
	}
	if int64(h.PayloadLen) > int64(limits.MaxPayloadBytes) {
		return Frame{}, ErrPayloadTooLarge
	}

	body := make([]byte, int(h.OriginLen)+int(h.TargetLen)+int(h.PayloadLen))
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, err
	}
	originEnd := int(h.OriginLen)
	targetEnd := originEnd + int(h.TargetLen)
	return Frame{
		Kind:    h.Kind,
		Origin:  string(body[:originEnd]),
		Target:  string(body[originEnd:targetEnd]),
		Payload: body[targetEnd:],
	}, nil
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if f.Kind != KindText && f.Kind != KindStructured {
		return ErrUnknownKind
	}
	if len(f.Origin) > limits.MaxOriginBytes || len(f.Target) > limits.MaxOriginBytes {
		return ErrOriginTooLarge
	}
	if len(f.Payload) > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	h := Header{
		Magic:      Magic,
		Version:    Version,
		Kind:       f.Kind,
		OriginLen:  uint16(len(f.Origin)),
		TargetLen:  uint16(len(f.Target)),
		PayloadLen: uint32(len(f.Payload)),
	}
	buf := make([]byte, 0, FixedHeaderLen+len(f.Origin)+len(f.Target)+len(f.Payload))
	buf = append(buf, EncodeHeader(h)...)
	buf = append(buf, f.Origin...)
	buf = append(buf, f.Target...)
	buf = append(buf, f.Payload...)
	_, err := w.Write(buf)
	return err
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Kind))
	binary.BigEndian.PutUint16(buf[8:10], h.OriginLen)
	binary.BigEndian.PutUint16(buf[10:12], h.TargetLen)
	binary.BigEndian.PutUint32(buf[12:16], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != FixedHeaderLen {
		return Header{}, fmt.Errorf("streamhost: invalid fixed header length: %d", len(b))
	}
	h := Header{
		Magic:      binary.BigEndian.Uint32(b[0:4]),
		Version:    binary.BigEndian.Uint16(b[4:6]),
		Kind:       Kind(binary.BigEndian.Uint16(b[6:8])),
		OriginLen:  binary.BigEndian.Uint16(b[8:10]),
		TargetLen:  binary.BigEndian.Uint16(b[10:12]),
		PayloadLen: binary.BigEndian.Uint32(b[12:16]),
	}
	if h.Magic != Magic {
		return Header{}, ErrBadMagic
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Kind != KindText && h.Kind != KindStructured {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownKind, h.Kind)
	}
	return h, nil
}
