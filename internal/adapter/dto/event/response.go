package event

// ErrorEvent is sent back on the connection that caused a failure
type ErrorEvent struct {
	Event   string `json:"event,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
