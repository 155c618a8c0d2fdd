package domain

import (
	"errors"
	"fmt"
)

// ErrorKind tags every failure returned by the remote transport.
type ErrorKind int

const (
	// KindHardFailure covers malformed input, server faults and undecodable
	// responses.
	KindHardFailure ErrorKind = iota
	// KindSoftConflict is an expected, recoverable rejection such as a
	// duplicate completion.
	KindSoftConflict
	// KindTransport covers timeouts, connectivity loss and cancellation.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindSoftConflict:
		return "soft_conflict"
	case KindTransport:
		return "transport"
	default:
		return "hard_failure"
	}
}

var (
	ErrHardFailure  = errors.New("remote request failed")
	ErrSoftConflict = errors.New("remote request conflicted")
	ErrTransport    = errors.New("remote service unreachable")
)

type RemoteError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Kind, e.StatusCode)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is matches the kind sentinels, so errors.Is(err, ErrSoftConflict) works
// through any amount of wrapping.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrHardFailure:
		return e.Kind == KindHardFailure
	case ErrSoftConflict:
		return e.Kind == KindSoftConflict
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

// KindOf reports the kind of the first RemoteError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return KindHardFailure, false
}
