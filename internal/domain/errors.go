package domain

import (
	"errors"
	"fmt"
	"time"
)

// ===== Базовые ошибки =====

// DomainError - ошибка с кодом, понятным оператору, и исходной причиной
type DomainError struct {
	Code    string
	Message string
	Kind    error
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (code: %s)", e.Message, e.Cause.Error(), e.Code)
	}
	return fmt.Sprintf("%s (code: %s)", e.Message, e.Code)
}

// Unwrap отдает и категорию, и причину, чтобы работали errors.Is и errors.As
func (e *DomainError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewDomainError создает новую доменную ошибку
func NewDomainError(code, message string, kind, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
		Cause:   cause,
	}
}

// ===== Ошибки транспорта =====

const (
	ErrCodeConnection = "CONNECTION_FAILED"
	ErrCodeCall       = "CALL_FAILED"
	ErrCodeBind       = "BIND_FAILED"
	ErrCodeClosed     = "CLIENT_CLOSED"
	ErrCodeConfig     = "INVALID_CONFIG"
)

var (
	ErrConnection = errors.New("connection failed")
	ErrCall       = errors.New("call failed")
	ErrBind       = errors.New("bind failed")
	ErrClosed     = errors.New("client is closed")
	ErrConfig     = errors.New("invalid configuration")
)

// NewConnectionError сервер недоступен или соединение не поднялось за timeout
func NewConnectionError(addr string, timeout time.Duration, cause error) *DomainError {
	return NewDomainError(
		ErrCodeConnection,
		fmt.Sprintf("could not connect to %s within %s", addr, timeout),
		ErrConnection,
		cause,
	)
}

// NewCallError вызов начался, но завершился ошибкой
func NewCallError(method string, attempts int, cause error) *DomainError {
	return NewDomainError(
		ErrCodeCall,
		fmt.Sprintf("%s failed after %d attempt(s)", method, attempts),
		ErrCall,
		cause,
	)
}

func NewBindError(addr string, cause error) *DomainError {
	return NewDomainError(
		ErrCodeBind,
		fmt.Sprintf("failed to listen on %s", addr),
		ErrBind,
		cause,
	)
}

func NewConfigError(cause error) *DomainError {
	return NewDomainError(ErrCodeConfig, "invalid configuration", ErrConfig, cause)
}

// ErrorCode возвращает код доменной ошибки или пустую строку
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
