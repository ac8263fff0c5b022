package errors

import "errors"

// Common errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidEvent = errors.New("invalid event")
)

// Room errors
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrNotInRoom     = errors.New("connection is not in a room")
	ErrAlreadyInRoom = errors.New("connection already in a room")
)

// Signaling errors
var (
	ErrRelayTargetUnavailable = errors.New("relay target unavailable")
)

// Transcript errors
var (
	ErrFlushInProgress   = errors.New("transcript flush already in progress")
	ErrPersistenceFailed = errors.New("transcript persistence failed")
)

// Analysis errors
var (
	ErrSummarizationFailed = errors.New("summarization failed")
	ErrMalformedAnalysis   = errors.New("malformed analysis payload")
)
