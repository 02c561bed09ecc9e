package wire

import "errors"

var (
	ErrMalformedReply   = errors.New("wire: malformed reply")
	ErrMalformedCommand = errors.New("wire: malformed command")
	ErrInvalidOption    = errors.New("wire: invalid option")
	ErrUnsupportedValue = errors.New("wire: unsupported value")
)
