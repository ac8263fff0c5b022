package jobcontext

import (
	"context"
	"errors"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

type KeyContext string

var (
	keyJobID        KeyContext = "job_id"
	keyJobType      KeyContext = "job_type"
	keyRoomCode     KeyContext = "room_code"
	keyJobStartTime KeyContext = "job_start_time"
)

// DefaultTimeout bounds a job when the caller passes a non-positive timeout
const DefaultTimeout = 5 * time.Minute

// JobMetadata holds metadata for a job execution
type JobMetadata struct {
	JobID     uuid.UUID
	JobType   string
	RoomCode  string
	StartTime time.Time
}

// JobBegin initializes a job context with metadata and timeout.
// Callers must always call the returned cancel func.
func JobBegin(parentCtx context.Context, jobType, roomCode string, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Create context with timeout to prevent infinite hanging
	ctx, cancel := context.WithTimeout(parentCtx, timeout)

	ctx = context.WithValue(ctx, keyJobID, uuid.New())
	ctx = context.WithValue(ctx, keyJobType, jobType)
	ctx = context.WithValue(ctx, keyRoomCode, roomCode)
	ctx = context.WithValue(ctx, keyJobStartTime, time.Now())

	return ctx, cancel
}

// GetJobID extracts job ID from context
func GetJobID(ctx context.Context) (uuid.UUID, bool) {
	jobID, ok := ctx.Value(keyJobID).(uuid.UUID)
	return jobID, ok
}

// GetJobType extracts job type from context
func GetJobType(ctx context.Context) (string, bool) {
	jobType, ok := ctx.Value(keyJobType).(string)
	return jobType, ok
}

// GetRoomCode extracts the room code from context
func GetRoomCode(ctx context.Context) (string, bool) {
	code, ok := ctx.Value(keyRoomCode).(string)
	return code, ok
}

// GetJobStartTime extracts job start time from context
func GetJobStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(keyJobStartTime).(time.Time)
	return startTime, ok
}

// GetJobMetadata extracts all job metadata from context
func GetJobMetadata(ctx context.Context) *JobMetadata {
	jobID, _ := GetJobID(ctx)
	jobType, _ := GetJobType(ctx)
	roomCode, _ := GetRoomCode(ctx)
	startTime, _ := GetJobStartTime(ctx)

	return &JobMetadata{
		JobID:     jobID,
		JobType:   jobType,
		RoomCode:  roomCode,
		StartTime: startTime,
	}
}

// Elapsed returns how long the job has been running
func (m *JobMetadata) Elapsed() time.Duration {
	if m.StartTime.IsZero() {
		return 0
	}
	return time.Since(m.StartTime)
}

// IsRetryableError checks if an error should trigger a retry
// Retryable errors include: network errors, timeouts, deadlocks, rate limits
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// A cancelled job must not be retried
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Network errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "network unreachable") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "eof") {
		return true
	}

	// Database deadlock/lock errors (Postgres)
	if strings.Contains(errStr, "deadlock") ||
		strings.Contains(errStr, "40001") || // serialization_failure
		strings.Contains(errStr, "40p01") { // deadlock_detected
		return true
	}

	// API rate limiting
	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "slowdown") ||
		strings.Contains(errStr, "429") {
		return true
	}

	// Server errors (5xx)
	if strings.Contains(errStr, "status 5") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "bad gateway") {
		return true
	}

	// Temporary failures
	if strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "try again") {
		return true
	}

	return false
}

// Classify wraps non-retryable errors as permanent so backoff.Retry stops immediately
func Classify(err error) error {
	if err == nil || IsRetryableError(err) {
		return err
	}
	return backoff.Permanent(err)
}
