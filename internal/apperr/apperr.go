package apperr

import (
	"errors"
	"fmt"
)

// Kind tags an error with the failure class the action layer turns into a
// user-facing message.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindGameNotFound
	KindTemplateNotFound // game has no deployable source
	KindServiceCreation  // includes name collisions
	KindTemplateDeployment
	KindFetchFailed
	KindDeployFailed
	KindDeleteFailed
	KindRestartFailed
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindGameNotFound:
		return "GAME_NOT_FOUND"
	case KindTemplateNotFound:
		return "TEMPLATE_NOT_FOUND"
	case KindServiceCreation:
		return "SERVICE_CREATION_FAILED"
	case KindTemplateDeployment:
		return "TEMPLATE_DEPLOYMENT_FAILED"
	case KindFetchFailed:
		return "FETCH_FAILED"
	case KindDeployFailed:
		return "DEPLOY_FAILED"
	case KindDeleteFailed:
		return "DELETE_FAILED"
	case KindRestartFailed:
		return "RESTART_FAILED"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Error is a tagged error. Message is safe to show to a signed-in user; Err
// carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a tagged error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err. The message is "<prefix>: <err>", matching how the remote
// gateway reports failures.
func Wrap(kind Kind, err error, prefix string) *Error {
	msg := prefix
	if err != nil {
		msg = fmt.Sprintf("%s: %v", prefix, err)
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first tagged error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
