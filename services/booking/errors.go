package booking

import (
	"errors"
	"fmt"
)

// Error codes surfaced by the engine. Handlers map these onto HTTP
// statuses; the engine itself never speaks HTTP.
const (
	CodeValidation          = "validation_error"
	CodeNotAvailable        = "not_available"
	CodeVendorConfigMissing = "vendor_config_missing"
	CodeSlotUnavailable     = "slot_unavailable"
	CodeUnauthorized        = "unauthorized"
	CodeNotFound            = "not_found"
	CodeConflict            = "conflict"
	CodeDepositRequired     = "deposit_required"
	CodeDepositNotRequired  = "deposit_not_required"
	CodeBelowMinimumDeposit = "below_minimum_deposit"
	CodeOfflineNotAllowed   = "offline_not_allowed"
	CodeGateway             = "gateway_error"
	CodeInternal            = "internal_error"
)

// Error is a typed engine error carrying a taxonomy code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrCode extracts the taxonomy code from an error chain; empty when the
// error did not originate in the engine.
func ErrCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code string) bool {
	return ErrCode(err) == code
}
