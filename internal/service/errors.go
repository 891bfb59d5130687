package service

import (
	"context"
	"errors"

	"taskloop-sync/internal/repository"
)

var (
	ErrNotParticipant       = errors.New("current user is not a participant of this room")
	ErrNotCreator           = errors.New("only the room creator can do this")
	ErrNotTaskOwner         = errors.New("task belongs to another participant")
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskBusy             = errors.New("another operation on this task is in progress")
	ErrRoomNotLoaded        = errors.New("room is not loaded")
	ErrInvalidInput         = errors.New("invalid input")
	ErrClosed               = errors.New("session sync is closed")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrNotAuthenticated     = errors.New("not logged in")
)

// User-facing messages for failed operations.
const (
	MsgLoadFailed       = "Failed to load session"
	MsgNotParticipant   = "You are not a participant in this study room."
	MsgRoomNotFound     = "No study room found."
	MsgAddFailed        = "Failed to add task. Please try again."
	MsgToggleFailed     = "Failed to update task status. Please try again."
	MsgEditFailed       = "Failed to update task. Please try again."
	MsgDeleteFailed     = "Failed to delete task. Please try again."
	MsgRenameFailed     = "Failed to update study room. Please try again."
	MsgLeaveFailed      = "Failed to leave study room. Please try again."
	MsgDeleteRoomFailed = "Failed to delete study room. Please try again."
)

// ErrorKind groups failures by what the user can do about them.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindDecode
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindDecode:
		return "decode"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Classify maps an error from any layer to its kind.
func Classify(err error) ErrorKind {
	var decErr *repository.DecodeError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &decErr):
		return KindDecode
	case errors.Is(err, repository.ErrUnauthorized), errors.Is(err, ErrNotAuthenticated):
		return KindUnauthorized
	case errors.Is(err, repository.ErrForbidden), errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrNotCreator), errors.Is(err, ErrNotTaskOwner):
		return KindForbidden
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrTaskNotFound):
		return KindNotFound
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	case errors.Is(err, ErrInvalidInput), errors.Is(err, repository.ErrRejected):
		return KindInvalid
	default:
		return KindUnknown
	}
}

// LoadErrorMessage is the message shown when the initial room fetch fails.
func LoadErrorMessage(err error) string {
	switch Classify(err) {
	case KindForbidden:
		return MsgNotParticipant
	case KindNotFound:
		return MsgRoomNotFound
	default:
		return MsgLoadFailed
	}
}
