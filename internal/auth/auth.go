// Package auth provides the shared-token check used between two link
// endpoints.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// HeaderName carries the shared token on every posted message.
const HeaderName = "X-Hostlink-Token"

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator validates an authentication token.
type Validator interface {
	Validate(token string) error
}

// StaticToken accepts exactly one shared token. An empty stored token
// accepts nothing.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(token string) error

func (f FuncValidator) Validate(token string) error {
	return f(token)
}

// AllowAll accepts any token, including none.
var AllowAll Validator = FuncValidator(func(string) error { return nil })

// ForToken returns AllowAll for a blank token and a StaticToken otherwise.
func ForToken(token string) Validator {
	token = strings.TrimSpace(token)
	if token == "" {
		return AllowAll
	}
	return StaticToken{Token: token}
}
