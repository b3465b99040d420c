package domain

import "errors"

// Domain errors
var (
	ErrPlayerNotFound   = errors.New("player not found")
	ErrGameNotFound     = errors.New("game session not found")
	ErrUsernameTaken    = errors.New("username already exists and has completed the game")
	ErrUsernameRequired = errors.New("username must not be empty")
	ErrGameIncomplete   = errors.New("not all pairs are matched")
	ErrAlreadySubmitted = errors.New("score already submitted for this game")
	ErrSubmitInProgress = errors.New("a submission is already in flight")
	ErrNoIdentity       = errors.New("no player identity in session")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrStoreUnavailable = errors.New("players collection unavailable")
	ErrInternalError    = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) || errors.Is(err, ErrGameNotFound)
}

// IsValidationError reports errors surfaced to the user as a validation
// message rather than a retryable failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrUsernameRequired)
}
