package domain

import "errors"

var (
	// ErrQuizNotFound indicates the referenced quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAnswerNotFound indicates the referenced answer does not exist.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrUnauthorized is returned when the caller is not the resource owner.
	ErrUnauthorized = errors.New("caller does not own this resource")
	// ErrInvalidState is returned when a transition is attempted outside its
	// valid lifecycle stage, e.g. editing a completed answer.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrValidation is returned for malformed input; wrap it with detail.
	ErrValidation = errors.New("invalid input")
	// ErrStoreConflict is returned once a store transaction has been retried
	// past its attempt budget.
	ErrStoreConflict = errors.New("store transaction conflict")
)
