package workflow

import (
	"errors"
	"fmt"

	"github.com/kazz187/taskmarket/pkg/cerr"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrConflictOnWrite   = errors.New("conflict on write")
)

type Kind int

const (
	KindUnknown Kind = iota
	KindForbidden
	KindInvalidTransition
	KindInvalidInput
	KindNotFound
	KindConflictOnWrite
	// KindStorage covers transient failures of the underlying store.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindForbidden:
		return "forbidden"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindConflictOnWrite:
		return "conflict_on_write"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

var kindSentinels = []struct {
	kind     Kind
	sentinel error
	code     cerr.Code
}{
	{KindForbidden, ErrForbidden, cerr.PermissionDenied},
	{KindInvalidTransition, ErrInvalidTransition, cerr.FailedPrecondition},
	{KindInvalidInput, ErrInvalidInput, cerr.InvalidArgument},
	{KindNotFound, ErrNotFound, cerr.NotFound},
	{KindConflictOnWrite, ErrConflictOnWrite, cerr.Aborted},
}

// KindOf classifies err into the engine's error taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, s := range kindSentinels {
		if errors.Is(err, s.sentinel) {
			return s.kind
		}
	}
	switch cerr.CodeOf(err) {
	case cerr.PermissionDenied, cerr.Unauthenticated:
		return KindForbidden
	case cerr.FailedPrecondition:
		return KindInvalidTransition
	case cerr.InvalidArgument:
		return KindInvalidInput
	case cerr.NotFound:
		return KindNotFound
	case cerr.Aborted, cerr.AlreadyExists:
		return KindConflictOnWrite
	case cerr.Internal, cerr.Unavailable, cerr.DeadlineExceeded:
		return KindStorage
	}
	return KindUnknown
}

// Retryable reports whether the caller may re-fetch state and try again.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindConflictOnWrite, KindStorage:
		return true
	}
	return false
}

func forbidden(format string, args ...any) error {
	return cerr.NewError(cerr.PermissionDenied, fmt.Sprintf(format, args...), ErrForbidden)
}

func invalidTransition(format string, args ...any) error {
	return cerr.NewError(cerr.FailedPrecondition, fmt.Sprintf(format, args...), ErrInvalidTransition)
}

func invalidInput(field, msg string) error {
	return cerr.NewError(cerr.InvalidArgument, msg, ErrInvalidInput).AddDetailMessageWithCode(msg, field)
}

func notFound(format string, args ...any) error {
	return cerr.NewError(cerr.NotFound, fmt.Sprintf(format, args...), ErrNotFound)
}

func conflict(format string, args ...any) error {
	return cerr.NewError(cerr.Aborted, fmt.Sprintf(format, args...), ErrConflictOnWrite)
}

// normalize makes errors coming out of the store match the sentinels with
// errors.Is while keeping their code and message.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	var ce *cerr.Error
	if !errors.As(err, &ce) {
		return err
	}
	for _, s := range kindSentinels {
		if errors.Is(err, s.sentinel) {
			return err
		}
	}
	for _, s := range kindSentinels {
		if KindOf(err) == s.kind {
			wrapped := cerr.NewError(ce.Code, ce.Msg, fmt.Errorf("%w: %w", s.sentinel, err))
			wrapped.Details = ce.Details
			return wrapped
		}
	}
	return err
}
