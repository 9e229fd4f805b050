package rental

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the rental services.
var (
	ErrVehicleNotFound             = errors.New("vehicle not found")
	ErrVehicleUnavailable          = errors.New("vehicle unavailable")
	ErrReservationNotFound         = errors.New("reservation not found")
	ErrReservationConflict         = errors.New("reservation conflict")
	ErrReservationAlreadyCancelled = errors.New("reservation already cancelled")
	ErrReservationExpired          = errors.New("reservation expired")
	ErrReservationConfirmed        = errors.New("reservation already confirmed")
	ErrPaymentDeclined             = errors.New("payment declined")
	ErrForbidden                   = errors.New("forbidden")
	ErrUserExists                  = errors.New("user already exists")
	ErrUserNotFound                = errors.New("user not found")
	ErrInvalidCredentials          = errors.New("invalid credentials")
	ErrInvalidRange                = errors.New("invalid reservation range")
	ErrInvalidUserID               = errors.New("invalid user id")
	ErrInvalidVehicleID            = errors.New("invalid vehicle id")
	ErrInvalidReservationID        = errors.New("invalid reservation id")
	ErrInvalidTransactionID        = errors.New("invalid transaction id")
	ErrInvalidAmountCents          = errors.New("invalid amount cents")
	ErrInvalidPaymentNonce         = errors.New("invalid payment method nonce")
	ErrInvalidPaymentMethod        = errors.New("invalid payment method")
	ErrInvalidReservationStatus    = errors.New("invalid reservation status")
	ErrInvalidTransactionStatus    = errors.New("invalid transaction status")
	ErrInvalidRole                 = errors.New("invalid role")
	ErrInvalidVehicle              = errors.New("invalid vehicle")
	ErrInvalidServiceConfig        = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
