package exchange

import (
	"encoding/json"
	"errors"
	"strconv"
)

var (
	// ErrExchange is matched by every error returned from [Client].
	ErrExchange = errors.New("credential exchange failed")
	// ErrRejected is matched when the identity backend answered with a non-2xx status.
	ErrRejected = errors.New("credential exchange rejected")
)

// Kind classifies exchange failures.
type Kind uint8

const (
	// KindRejected means the backend declined the request (non-2xx).
	KindRejected Kind = iota + 1
	// KindTransport means the request never produced a response.
	KindTransport
	// KindMalformed means a 2xx response could not be read as credentials.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is the tagged failure of a login or refresh exchange. Payload holds the
// backend's rejection body verbatim and is never interpreted here.
type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Payload json.RawMessage
	Err     error
}

func (e *Error) Error() string {
	msg := "exchange " + e.Op + ": " + e.Kind.String()
	if e.Status != 0 {
		msg += " (status " + strconv.Itoa(e.Status) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrExchange:
		return true
	case ErrRejected:
		return e.Kind == KindRejected
	}
	return false
}

// IsRejected reports whether err is a backend rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
