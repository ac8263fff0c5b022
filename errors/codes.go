package errors

// ErrorCode identifies an application error class in API responses
type ErrorCode int

const (
	ErrorCode_HTTP_OK ErrorCode = 200

	// General
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_UNAUTHENTICATED  ErrorCode = 1004

	// Auth
	ErrorCode_AUTH_INVALID_TOKEN ErrorCode = 2001

	// Rooms
	ErrorCode_ROOM_NOT_FOUND ErrorCode = 3001
	ErrorCode_ROOM_FULL      ErrorCode = 3002
	ErrorCode_NOT_IN_ROOM    ErrorCode = 3004

	// Transcript / analysis
	ErrorCode_FLUSH_IN_PROGRESS  ErrorCode = 4001
	ErrorCode_PERSISTENCE_FAILED ErrorCode = 4002
	ErrorCode_REPORT_NOT_FOUND   ErrorCode = 4003
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:            "OK",
	ErrorCode_INTERNAL:           "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:   "INVALID_ARGUMENT",
	ErrorCode_UNAUTHENTICATED:    "UNAUTHENTICATED",
	ErrorCode_AUTH_INVALID_TOKEN: "AUTH_INVALID_TOKEN",
	ErrorCode_ROOM_NOT_FOUND:     "ROOM_NOT_FOUND",
	ErrorCode_ROOM_FULL:          "ROOM_FULL",
	ErrorCode_NOT_IN_ROOM:        "NOT_IN_ROOM",
	ErrorCode_FLUSH_IN_PROGRESS:  "FLUSH_IN_PROGRESS",
	ErrorCode_PERSISTENCE_FAILED: "PERSISTENCE_FAILED",
	ErrorCode_REPORT_NOT_FOUND:   "REPORT_NOT_FOUND",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
