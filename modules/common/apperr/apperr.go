package apperr

import "errors"

// ErrorCode - 에러 분류 코드
type ErrorCode string

const (
	CodeConfig                ErrorCode = "CONFIG_ERROR"
	CodeValidation            ErrorCode = "VALIDATION_ERROR"
	CodeIO                    ErrorCode = "IO_ERROR"
	CodeUpstreamRefusal       ErrorCode = "UPSTREAM_REFUSAL"
	CodeUpstreamEmptyResponse ErrorCode = "UPSTREAM_EMPTY_RESPONSE"
	CodeGenerationFailed      ErrorCode = "GENERATION_FAILED"
)

// Error - 코드 + 사용자에게 보여줄 메시지 + 원인
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns only the human-readable message; the code is never shown to users.
func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error that keeps cause reachable through errors.As / errors.Is.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf - err 체인에서 첫 번째 *Error의 코드 조회 (없으면 빈 문자열)
func CodeOf(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
