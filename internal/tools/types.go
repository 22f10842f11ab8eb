// Package tools defines the Genkit tools exposed to the model, with a
// structured result envelope so tool failures reach the model as data it can
// reason about instead of aborting the generation.
package tools

// Status indicates whether a tool call succeeded.
type Status string

const (
	// StatusSuccess indicates the tool completed normally.
	StatusSuccess Status = "success"

	// StatusError indicates the tool failed; Error carries details.
	StatusError Status = "error"
)

// ErrorCode classifies tool failures for the model.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed tool input.
	ErrCodeValidation ErrorCode = "ValidationError"

	// ErrCodeExecution indicates the tool ran but failed.
	ErrCodeExecution ErrorCode = "ExecutionError"

	// ErrCodeTimeout indicates the tool exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TimeoutError"
)

// Result is the uniform envelope returned by every tool.
type Result struct {
	Status     Status         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"` // remediation hint for the model
	Data       map[string]any `json:"data,omitempty"`
	Error      *Error         `json:"error,omitempty"`
}

// Error is a structured tool failure for model consumption.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil tool error>"
	}
	if e.Code == "" {
		return e.Message
	}
	return string(e.Code) + ": " + e.Message
}
