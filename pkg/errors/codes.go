package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeLockNotAcquired    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Docket Module Error Codes
const (
	ErrCodeCountryParamsMissing    ErrorCode = "DOCKET_001"
	ErrCodeFeeDataIncomplete       ErrorCode = "DOCKET_002"
	ErrCodeTerminalState           ErrorCode = "DOCKET_003"
	ErrCodeEventDuplicate          ErrorCode = "DOCKET_004"
	ErrCodeTaskDoneInconsistent    ErrorCode = "DOCKET_005"
	ErrCodeRuleInvalid             ErrorCode = "DOCKET_006"
	ErrCodeTaskVersionConflict     ErrorCode = "DOCKET_007"
	ErrCodeMatterNotFound          ErrorCode = "DOCKET_008"
	ErrCodeTaskNotFound            ErrorCode = "DOCKET_009"
	ErrCodeEventNotFound           ErrorCode = "DOCKET_010"
	ErrCodeEventDateUnresolved     ErrorCode = "DOCKET_011"
	ErrCodeTransitionUnknown       ErrorCode = "DOCKET_012"
	ErrCodeMatterDuplicate         ErrorCode = "DOCKET_013"
	ErrCodeInvoiceStepRegression   ErrorCode = "DOCKET_014"
)

// Aliases used across the code base.
const (
	CodeUnknown        = ErrorCode("")
	CodeOK             = ErrorCode("OK")
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeValidation     = ErrCodeValidation
	CodeDatabaseError  = ErrCodeDatabaseError
	CodeCacheError     = ErrCodeCacheError
	CodeSerialization  = ErrCodeSerialization
	CodeNotImplemented = ErrCodeNotImplemented

	CodeCountryParamsMissing  = ErrCodeCountryParamsMissing
	CodeFeeDataIncomplete     = ErrCodeFeeDataIncomplete
	CodeTerminalState         = ErrCodeTerminalState
	CodeEventDuplicate        = ErrCodeEventDuplicate
	CodeTaskDoneInconsistent  = ErrCodeTaskDoneInconsistent
	CodeRuleInvalid           = ErrCodeRuleInvalid
	CodeTaskVersionConflict   = ErrCodeTaskVersionConflict
	CodeMatterNotFound        = ErrCodeMatterNotFound
	CodeTaskNotFound          = ErrCodeTaskNotFound
	CodeEventNotFound         = ErrCodeEventNotFound
	CodeEventDateUnresolved   = ErrCodeEventDateUnresolved
	CodeTransitionUnknown     = ErrCodeTransitionUnknown
	CodeMatterDuplicate       = ErrCodeMatterDuplicate
	CodeInvoiceStepRegression = ErrCodeInvoiceStepRegression
)

// ErrorCodeHTTPStatus maps codes to the HTTP status an edge adapter should use.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeLockNotAcquired:    http.StatusConflict,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeCountryParamsMissing:  http.StatusUnprocessableEntity,
	ErrCodeFeeDataIncomplete:     http.StatusUnprocessableEntity,
	ErrCodeTerminalState:         http.StatusConflict,
	ErrCodeEventDuplicate:        http.StatusConflict,
	ErrCodeTaskDoneInconsistent:  http.StatusUnprocessableEntity,
	ErrCodeRuleInvalid:           http.StatusInternalServerError,
	ErrCodeTaskVersionConflict:   http.StatusConflict,
	ErrCodeMatterNotFound:        http.StatusNotFound,
	ErrCodeTaskNotFound:          http.StatusNotFound,
	ErrCodeEventNotFound:         http.StatusNotFound,
	ErrCodeEventDateUnresolved:   http.StatusUnprocessableEntity,
	ErrCodeTransitionUnknown:     http.StatusBadRequest,
	ErrCodeMatterDuplicate:       http.StatusConflict,
	ErrCodeInvoiceStepRegression: http.StatusConflict,
}

// ErrorCodeMessage holds the default message per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeLockNotAcquired:    "lock not acquired",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeCountryParamsMissing:  "country renewal parameters missing",
	ErrCodeFeeDataIncomplete:     "fee schedule data incomplete",
	ErrCodeTerminalState:         "task is in a terminal workflow state",
	ErrCodeEventDuplicate:        "event already recorded",
	ErrCodeTaskDoneInconsistent:  "task done flag and done date disagree",
	ErrCodeRuleInvalid:           "task rule is invalid",
	ErrCodeTaskVersionConflict:   "task was modified concurrently",
	ErrCodeMatterNotFound:        "matter not found",
	ErrCodeTaskNotFound:          "task not found",
	ErrCodeEventNotFound:         "event not found",
	ErrCodeEventDateUnresolved:   "event date could not be resolved",
	ErrCodeTransitionUnknown:     "unknown workflow transition",
	ErrCodeMatterDuplicate:       "matter identifier already in use",
	ErrCodeInvoiceStepRegression: "invoice step cannot move backwards",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
