package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError là custom error type cho application
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the underlying error to errors.Is / errors.As
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrUnauthenticated() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_UNAUTHENTICATED,
		Message:  "Authentication required",
	}
}

// Authentication Errors
func ErrInvalidToken(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_AUTH_INVALID_TOKEN,
		Message:  "Invalid authentication token",
	}
}

// Room Errors
func ErrRoomNotFound(roomCode string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_ROOM_NOT_FOUND,
		Message:  "Room not found",
	}.WithDetail("room_code", roomCode)
}

func ErrRoomFull(roomCode string, maxParticipants int) AppError {
	return AppError{
		HTTPCode: http.StatusTooManyRequests,
		Code:     ErrorCode_ROOM_FULL,
		Message:  "Room is full",
	}.WithDetail("room_code", roomCode).
		WithDetail("max_participants", fmt.Sprintf("%d", maxParticipants))
}

func ErrNotInRoom() AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_NOT_IN_ROOM,
		Message:  "Connection has not joined a room",
	}
}

// Transcript Errors
func ErrFlushInProgress(roomCode string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_FLUSH_IN_PROGRESS,
		Message:  "Transcript flush already in progress",
	}.WithDetail("room_code", roomCode)
}

func ErrPersistenceFailed(roomCode string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_PERSISTENCE_FAILED,
		Message:  "Failed to persist transcript",
	}.WithDetail("room_code", roomCode)
}

func ErrReportNotFound(roomCode string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_REPORT_NOT_FOUND,
		Message:  "Report not found",
	}.WithDetail("room_code", roomCode)
}
