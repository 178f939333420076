package service

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindInvalidRole        ErrorKind = "INVALID_ROLE"
	KindStateConflict      ErrorKind = "STATE_CONFLICT"
	KindNotOwner           ErrorKind = "NOT_OWNER"
	KindPreviouslyExpired  ErrorKind = "PREVIOUSLY_EXPIRED"
	KindReservationExpired ErrorKind = "RESERVATION_EXPIRED"
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
	KindDuplicate          ErrorKind = "DUPLICATE"
)

// Error is a rejected operation. Kind groups errors for transport mapping,
// Code identifies the exact failure.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code so that errors.Is works against the sentinels below
// regardless of Kind or Message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrValidation         = &Error{Kind: KindValidation, Code: "VALIDATION", Message: "invalid input"}
	ErrNotFound           = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "listing not found"}
	ErrAccountNotFound    = &Error{Kind: KindNotFound, Code: "ACCOUNT_NOT_FOUND", Message: "account not found"}
	ErrInvalidHostel      = &Error{Kind: KindInvalidRole, Code: "INVALID_HOSTEL", Message: "caller is not a hostel account"}
	ErrInvalidVolunteer   = &Error{Kind: KindInvalidRole, Code: "INVALID_VOLUNTEER", Message: "caller is not a volunteer account"}
	ErrNotAvailable       = &Error{Kind: KindStateConflict, Code: "NOT_AVAILABLE", Message: "listing is not available"}
	ErrNotReserved        = &Error{Kind: KindStateConflict, Code: "NOT_RESERVED", Message: "listing is not reserved"}
	ErrConflict           = &Error{Kind: KindStateConflict, Code: "CONFLICT", Message: "listing is being modified, try again"}
	ErrNotOwner           = &Error{Kind: KindNotOwner, Code: "NOT_OWNER", Message: "caller does not own this listing"}
	ErrPreviouslyExpired  = &Error{Kind: KindPreviouslyExpired, Code: "PREVIOUSLY_EXPIRED", Message: "your earlier reservation of this listing expired"}
	ErrReservationExpired = &Error{Kind: KindReservationExpired, Code: "RESERVATION_EXPIRED", Message: "reservation expired before collection"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid credentials"}
	ErrEmailTaken         = &Error{Kind: KindDuplicate, Code: "EMAIL_TAKEN", Message: "email is already registered"}
)

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: ErrValidation.Code, Message: fmt.Sprintf(format, args...)}
}

// unknownAccount reports a missing caller with the role code of the operation.
func unknownAccount(roleErr *Error) *Error {
	return &Error{Kind: KindNotFound, Code: roleErr.Code, Message: "account not found"}
}
