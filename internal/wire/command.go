package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// NamespaceSeparator selects the structured encoding when present in a command name.
const NamespaceSeparator = ":"

// DefaultSafelyTime is the safe-timeout delay used when none is given.
const DefaultSafelyTime = 900 * time.Millisecond

// Options-bag control keys.
const (
	KeyIsRawValue   = "isRawValue"
	KeyIsSafely     = "isSafely"
	KeySafelyTime   = "safelyTime"
	KeyCallBack     = "callBack"
	KeySingleOption = "singleOption"
)

// Command is the encoding choice for one outbound command, resolved once from its name.
type Command interface {
	Name() string
	isCommand()
}

// LegacyCommand is sent as a single colon-joined string.
type LegacyCommand string

func (c LegacyCommand) Name() string { return string(c) }
func (LegacyCommand) isCommand()     {}

// StructuredCommand is sent as a {method, params, callback, appSid} object.
type StructuredCommand struct {
	Method string
}

func (c StructuredCommand) Name() string { return c.Method }
func (StructuredCommand) isCommand()     {}

func ParseCommand(name string) Command {
	if strings.Contains(name, NamespaceSeparator) {
		return StructuredCommand{Method: name}
	}
	return LegacyCommand(name)
}

// Options describes the parameters and delivery flags of one outbound command.
type Options struct {
	// Params is sent when SingleOption is nil. Control keys are ignored.
	Params map[string]any
	// SingleOption is a pre-encoded parameter blob that overrides Params.
	SingleOption any
	// IsRawValue skips string-serialization of string params in legacy mode.
	IsRawValue bool
	// IsSafely arms a fallback timer that settles the request with SafeTimeoutValue.
	IsSafely   bool
	SafelyTime time.Duration
	// Callback receives every later event tagged with this request's id.
	Callback func(Value)
}

// EffectiveSafelyTime returns SafelyTime or fallback when unset.
func (o Options) EffectiveSafelyTime(fallback time.Duration) time.Duration {
	if o.SafelyTime > 0 {
		return o.SafelyTime
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultSafelyTime
}

// ParseOptions reads the loose options-bag form. Control keys are consumed;
// everything else (isRawValue included) stays in Params.
func ParseOptions(bag map[string]any) (Options, error) {
	var opts Options
	params := make(map[string]any, len(bag))
	for k, v := range bag {
		params[k] = v
	}
	if raw, ok := bag[KeyIsRawValue]; ok {
		b, err := optionBool(KeyIsRawValue, raw)
		if err != nil {
			return Options{}, err
		}
		opts.IsRawValue = b
	}
	if raw, ok := bag[KeyIsSafely]; ok {
		b, err := optionBool(KeyIsSafely, raw)
		if err != nil {
			return Options{}, err
		}
		opts.IsSafely = b
	}
	if raw, ok := bag[KeySafelyTime]; ok {
		d, err := optionMillis(KeySafelyTime, raw)
		if err != nil {
			return Options{}, err
		}
		opts.SafelyTime = d
	}
	if raw, ok := bag[KeyCallBack]; ok && raw != nil {
		switch fn := raw.(type) {
		case func(Value):
			opts.Callback = fn
		case func(any):
			opts.Callback = func(v Value) { fn(v.Interface()) }
		default:
			return Options{}, fmt.Errorf("%w: %s has type %T", ErrInvalidOption, KeyCallBack, raw)
		}
	}
	if raw, ok := bag[KeySingleOption]; ok {
		opts.SingleOption = raw
	}
	opts.Params = stripControlKeys(params)
	return opts, nil
}

func optionBool(key string, raw any) (bool, error) {
	switch t := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	default:
		return false, fmt.Errorf("%w: %s has type %T", ErrInvalidOption, key, raw)
	}
}

func optionMillis(key string, raw any) (time.Duration, error) {
	var ms float64
	switch t := raw.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return t, nil
	case int:
		ms = float64(t)
	case int64:
		ms = float64(t)
	case float64:
		ms = t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidOption, key, t.String())
		}
		ms = f
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidOption, key, raw)
	}
	if ms < 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidOption, key, ms)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

func stripControlKeys(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch k {
		case KeyCallBack, KeyIsSafely, KeySafelyTime, KeySingleOption:
			continue
		}
		out[k] = v
	}
	return out
}

// paramSource picks the single option over the parameter map. present is false
// when neither carries anything to send.
func (o Options) paramSource() (value any, single bool, present bool) {
	if o.SingleOption != nil {
		return o.SingleOption, true, true
	}
	rest := stripControlKeys(o.Params)
	if len(rest) == 0 {
		return nil, false, false
	}
	return rest, false, true
}
