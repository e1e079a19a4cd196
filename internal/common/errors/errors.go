// internal/common/errors/errors.go
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode представляет код ошибки
type ErrorCode string

const (
	// Общие ошибки
	ErrorCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrorCodeConflict   ErrorCode = "CONFLICT"
	ErrorCodeTimeout    ErrorCode = "TIMEOUT"

	// Ошибки декодирования
	ErrorCodeDecodeFailed     ErrorCode = "DECODE_FAILED"
	ErrorCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrorCodeTemplateInvalid  ErrorCode = "TEMPLATE_INVALID"
	ErrorCodeIEInvalid        ErrorCode = "IE_INVALID"

	// Ошибки анализа
	ErrorCodeAnalysisFailed ErrorCode = "ANALYSIS_FAILED"
	ErrorCodeRuleInvalid    ErrorCode = "RULE_INVALID"
	ErrorCodeHistoryFailed  ErrorCode = "HISTORY_FAILED"

	// Ошибки NATS
	ErrorCodeNATSConnection ErrorCode = "NATS_CONNECTION_ERROR"
	ErrorCodeNATSPublish    ErrorCode = "NATS_PUBLISH_ERROR"
	ErrorCodeNATSSubscribe  ErrorCode = "NATS_SUBSCRIBE_ERROR"

	// Ошибки ClickHouse
	ErrorCodeCHConnection ErrorCode = "CH_CONNECTION_ERROR"
	ErrorCodeCHInsert     ErrorCode = "CH_INSERT_ERROR"
	ErrorCodeCHQuery      ErrorCode = "CH_QUERY_ERROR"

	// Ошибки PostgreSQL
	ErrorCodePGConnection ErrorCode = "PG_CONNECTION_ERROR"
	ErrorCodePGQuery      ErrorCode = "PG_QUERY_ERROR"
	ErrorCodePGInsert     ErrorCode = "PG_INSERT_ERROR"

	// Ошибки Redis
	ErrorCodeRedisConnection ErrorCode = "REDIS_CONNECTION_ERROR"
	ErrorCodeRedisCommand    ErrorCode = "REDIS_COMMAND_ERROR"
)

// SigScopeError представляет ошибку SigScope
type SigScopeError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Internal   error                  `json:"-"`
	StatusCode int                    `json:"status_code"`
}

// Error возвращает строковое представление ошибки // v1.0
func (e *SigScopeError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap возвращает внутреннюю ошибку // v1.0
func (e *SigScopeError) Unwrap() error {
	return e.Internal
}

// New создает новую ошибку SigScope // v1.0
func New(code ErrorCode, message string) *SigScopeError {
	return &SigScopeError{
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		StatusCode: getStatusCode(code),
	}
}

// Wrap оборачивает существующую ошибку // v1.0
func Wrap(err error, code ErrorCode, message string) *SigScopeError {
	return &SigScopeError{
		Code:       code,
		Message:    message,
		Internal:   err,
		Details:    make(map[string]interface{}),
		StatusCode: getStatusCode(code),
	}
}

// AddDetail добавляет деталь к ошибке // v1.0
func (e *SigScopeError) AddDetail(key string, value interface{}) *SigScopeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode проверяет, является ли ошибка определенного кода // v1.0
func IsErrorCode(err error, code ErrorCode) bool {
	if scopeErr, ok := err.(*SigScopeError); ok {
		return scopeErr.Code == code
	}
	return false
}

// GetErrorCode возвращает код ошибки // v1.0
func GetErrorCode(err error) ErrorCode {
	if scopeErr, ok := err.(*SigScopeError); ok {
		return scopeErr.Code
	}
	return ErrorCodeInternal
}

// getStatusCode возвращает HTTP статус код для кода ошибки // v1.0
func getStatusCode(code ErrorCode) int {
	switch code {
	case ErrorCodeValidation, ErrorCodeTemplateInvalid, ErrorCodeIEInvalid, ErrorCodeRuleInvalid:
		return 400
	case ErrorCodeNotFound, ErrorCodeTemplateNotFound:
		return 404
	case ErrorCodeConflict:
		return 409
	case ErrorCodeTimeout:
		return 408
	default:
		return 500
	}
}

// ValidationError создает ошибку валидации // v1.0
func ValidationError(field, message string) *SigScopeError {
	return New(ErrorCodeValidation, fmt.Sprintf("validation failed for field '%s': %s", field, message))
}

// NotFoundError создает ошибку "не найдено" // v1.0
func NotFoundError(resource, id string) *SigScopeError {
	return New(ErrorCodeNotFound, fmt.Sprintf("%s with id '%s' not found", resource, id))
}

// InternalError создает внутреннюю ошибку // v1.0
func InternalError(message string) *SigScopeError {
	return New(ErrorCodeInternal, message)
}

// WrapInternal оборачивает внутреннюю ошибку // v1.0
func WrapInternal(err error, message string) *SigScopeError {
	return Wrap(err, ErrorCodeInternal, message)
}

// AggregateErrors объединяет несколько ошибок в одну // v1.0
func AggregateErrors(errs []error) *SigScopeError {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		if scopeErr, ok := errs[0].(*SigScopeError); ok {
			return scopeErr
		}
		return Wrap(errs[0], ErrorCodeInternal, "aggregated error")
	}

	var messages []string
	for _, err := range errs {
		messages = append(messages, err.Error())
	}

	return New(ErrorCodeInternal, fmt.Sprintf("multiple errors occurred: %s", strings.Join(messages, "; ")))
}
