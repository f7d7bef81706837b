package errs

import "fmt"

// CodeError is the wire shape for API failures: a stable code plus a
// human-readable message, with optional detail for logs.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%d] %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Msg, e.Detail)
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	ne := *e
	if ne.Detail == "" {
		ne.Detail = detail
	} else {
		ne.Detail = ne.Detail + ", " + detail
	}
	return &ne
}

// Common API errors.
var (
	ErrArgs         = NewCodeError(1001, "invalid argument")
	ErrTokenInvalid = NewCodeError(1101, "token invalid or expired")
	ErrNotFound     = NewCodeError(1201, "record not found")
	ErrRateLimited  = NewCodeError(1301, "too many requests")
	ErrInternal     = NewCodeError(1500, "internal error")
)
