// Package errors provides standardized error handling for the analytics pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	ErrCodeSalesforceAuthFailed  ErrorCode = "SALESFORCE_AUTH_FAILED"
	ErrCodeSalesforceQueryFailed ErrorCode = "SALESFORCE_QUERY_FAILED"
	ErrCodeRecordUpdateFailed    ErrorCode = "RECORD_UPDATE_FAILED"
	ErrCodeTaskCreateFailed      ErrorCode = "TASK_CREATE_FAILED"
	ErrCodeDatasetInvalid        ErrorCode = "DATASET_INVALID"

	ErrCodeResultStoreFailed ErrorCode = "RESULT_STORE_FAILED"
	ErrCodeResultNotFound    ErrorCode = "RESULT_NOT_FOUND"
	ErrCodeCacheFailed       ErrorCode = "CACHE_FAILED"
	ErrCodeHistoryWriteFailed ErrorCode = "HISTORY_WRITE_FAILED"
	ErrCodeIndexWriteFailed   ErrorCode = "INDEX_WRITE_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeEventPublishFailed     ErrorCode = "EVENT_PUBLISH_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewConfigInvalidError creates a non-retryable configuration error. This is
// the only error class the scoring engines can ever surface, and only at load.
func NewConfigInvalidError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid analytics configuration",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSalesforceAuthFailedError creates a non-retryable auth error.
func NewSalesforceAuthFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSalesforceAuthFailed,
		Message:   "Salesforce authentication failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSalesforceQueryFailedError creates a retryable query error.
func NewSalesforceQueryFailedError(object string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSalesforceQueryFailed,
		Message:   "Salesforce query failed",
		Details:   fmt.Sprintf("object: %s, error: %s", object, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordUpdateFailedError creates a retryable writeback error.
func NewRecordUpdateFailedError(object, recordID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordUpdateFailed,
		Message:   "CRM record update failed",
		Details:   fmt.Sprintf("object: %s, id: %s, error: %s", object, recordID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTaskCreateFailedError creates a retryable task creation error.
func NewTaskCreateFailedError(relatedID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTaskCreateFailed,
		Message:   "CRM task creation failed",
		Details:   fmt.Sprintf("relatedId: %s, error: %s", relatedID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatasetInvalidError creates a non-retryable dataset validation error.
func NewDatasetInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatasetInvalid,
		Message:   "Record dataset failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResultStoreFailedError creates a retryable object storage error.
func NewResultStoreFailedError(analysisType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultStoreFailed,
		Message:   "Failed to store analytics results",
		Details:   fmt.Sprintf("analysisType: %s, error: %s", analysisType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResultNotFoundError creates a non-retryable missing result error.
func NewResultNotFoundError(analysisType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultNotFound,
		Message:   "No stored results for analysis type",
		Details:   fmt.Sprintf("analysisType: %s", analysisType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheFailedError creates a retryable cache error.
func NewCacheFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheFailed,
		Message:   "Result cache operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewHistoryWriteFailedError creates a retryable run history error.
func NewHistoryWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeHistoryWriteFailed,
		Message:   "Run history insert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexWriteFailedError creates a retryable search index error.
func NewIndexWriteFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexWriteFailed,
		Message:   "Search index write failed",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEventPublishFailedError creates a retryable event stream error.
func NewEventPublishFailedError(topic string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventPublishFailed,
		Message:   "Run event publish failed",
		Details:   fmt.Sprintf("topic: %s, error: %s", topic, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	if se, ok := err.(*StandardError); ok {
		return se.Retryable
	}
	return false
}
