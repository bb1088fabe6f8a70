package tools

// Status reports the outcome of a tool execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Error codes returned to the model so it can understand and correct failures.
const (
	ErrCodeValidation = "validation_error"
	ErrCodeExecution  = "execution_error"
	ErrCodeNetwork    = "network_error"
	ErrCodeSecurity   = "security_error"
)

// Result is the structured envelope every tool returns. Failures are
// expressed inside the envelope rather than as Go errors so the model can
// read the failure and adjust, instead of the turn being aborted.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *Error         `json:"error,omitempty"`
}

// Error carries a machine-readable code plus a human-readable message.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorResult(code, message string) Result {
	return Result{
		Status: StatusError,
		Error:  &Error{Code: code, Message: message},
	}
}
