package domain

import "errors"

var (
	// ErrMatchNotFound is returned when a match ID resolves to nothing.
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchNotOngoing is returned when an operation requires an ONGOING match.
	ErrMatchNotOngoing = errors.New("match not ongoing")
	// ErrInvalidTransition is returned for lifecycle changes the state machine forbids.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrDuplicateAnswer is returned when a player already answered a match question.
	ErrDuplicateAnswer = errors.New("duplicate answer")
	// ErrUnknownQuestion is returned when a match question does not belong to the match.
	ErrUnknownQuestion = errors.New("unknown match question")
	// ErrPlayerNotInMatch is returned when a user has no player record for the match.
	ErrPlayerNotInMatch = errors.New("player not in match")
	// ErrInsufficientQuestions is returned when the catalog cannot satisfy a match request.
	ErrInsufficientQuestions = errors.New("insufficient questions")
	// ErrInvalidParticipants is returned for an empty or malformed roster.
	ErrInvalidParticipants = errors.New("invalid participants")
	// ErrInvalidRequest is returned for malformed match parameters.
	ErrInvalidRequest = errors.New("invalid match request")
)
