package service

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by RoomService for a rejected operation
// matches exactly one of them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("invalid state")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrModeMismatch       = errors.New("mode mismatch")
)

// Error is a user facing failure of a given kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrRoomNotFound   = newError(ErrNotFound, "room not found")
	ErrPlayerNotFound = newError(ErrNotFound, "player not found")
	ErrTargetNotFound = newError(ErrNotFound, "target player not found")

	ErrNotHost        = newError(ErrForbidden, "only the host can do that")
	ErrCannotKickSelf = newError(ErrForbidden, "the host cannot kick themselves")
	ErrNotYourTurn    = newError(ErrForbidden, "it is not your turn")
	ErrWrongRole      = newError(ErrForbidden, "you do not hold the role for that")
	ErrSpectator      = newError(ErrForbidden, "eliminated players cannot do that")
	ErrNotSpectator   = newError(ErrForbidden, "only eliminated players can use the spectator chat")

	ErrRoomNotWaiting   = newError(ErrInvalidState, "the game has already started")
	ErrNotPlaying       = newError(ErrInvalidState, "the room is not in the discussion phase")
	ErrNotVoting        = newError(ErrInvalidState, "the room is not voting")
	ErrNotInGame        = newError(ErrInvalidState, "no game is in progress")
	ErrTurnOrderUnset   = newError(ErrInvalidState, "turn order is not initialized")
	ErrVotingInProgress = newError(ErrInvalidState, "cannot start a game while voting")

	ErrNameRequired      = newError(ErrPreconditionFailed, "a player name is required")
	ErrSessionRequired   = newError(ErrPreconditionFailed, "a session id is required")
	ErrUnknownCategory   = newError(ErrPreconditionFailed, "unknown word category")
	ErrAlreadyCalledVote = newError(ErrPreconditionFailed, "you already called to vote")
	ErrAbilityUsed       = newError(ErrPreconditionFailed, "ability already used")
	ErrInvalidTarget     = newError(ErrPreconditionFailed, "target must be another active player")
	ErrGhostAlive        = newError(ErrPreconditionFailed, "the clue can only be left after being eliminated")
	ErrClueAlreadySet    = newError(ErrPreconditionFailed, "clue already set")
	ErrEmptyContent      = newError(ErrPreconditionFailed, "content cannot be empty")
	ErrInvalidEmoji      = newError(ErrPreconditionFailed, "emoji not allowed")
	ErrRateLimited       = newError(ErrPreconditionFailed, "too many messages, slow down")

	// ErrRoomCodeGenerationFailed is an internal failure, not a rejection.
	ErrRoomCodeGenerationFailed = errors.New("failed to generate unique room code after multiple attempts")
)
