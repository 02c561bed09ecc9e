// Package identity supplies the collaborators the bridge treats as opaque:
// correlation id generation and destination origin / application session lookup.
package identity

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrOriginRequired = errors.New("identity: target origin required")
	ErrIDGeneration   = errors.New("identity: id generation failed")
)

// IDGenerator produces collision-resistant correlation tokens.
type IDGenerator interface {
	NewID() (string, error)
}

// Provider resolves where outbound messages go and which session they carry.
type Provider interface {
	TargetOrigin() string
	AppSID() string
}

// UUIDGenerator issues random (v4) uuids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIDGeneration, err)
	}
	return id.String(), nil
}

// IDFunc adapts a plain function into an IDGenerator.
type IDFunc func() (string, error)

func (f IDFunc) NewID() (string, error) {
	return f()
}

// Static is a fixed Provider.
type Static struct {
	Origin  string
	Session string
}

// NewStatic validates the origin and trims both fields.
func NewStatic(origin, appSID string) (Static, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return Static{}, ErrOriginRequired
	}
	return Static{Origin: origin, Session: strings.TrimSpace(appSID)}, nil
}

func (s Static) TargetOrigin() string { return s.Origin }
func (s Static) AppSID() string       { return s.Session }

// SessionID derives a stable application session id from a name, for hosts
// that do not hand one out.
func SessionID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("hostlink:"+strings.TrimSpace(name))).String()
}

// PairSessionID derives an application session id both ends of a channel
// agree on: the result does not depend on which origin is local.
func PairSessionID(a, b string) string {
	pair := []string{strings.TrimSpace(a), strings.TrimSpace(b)}
	sort.Strings(pair)
	return SessionID(strings.Join(pair, " "))
}
