package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindForbidden
	KindValidation
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// Error is a business-rule failure whose Message is safe to show to clients.
// Anything that is not an *Error is an unexpected failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Message }

func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

// KindOf reports the kind of a service error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

const (
	msgEventNotFound        = "Event not found."
	msgRegistrationNotFound = "Registration not found for this event and user."
	msgUserNotFound         = "User not found."
	msgSelfRegistration     = "Organizers cannot register for their own event."
	msgAlreadyRegistered    = "User already registered for this event."
	msgEventFull            = "Event is full."
	msgEndBeforeStart       = "End time must not be before start time."
	msgNotEventOrganizer    = "Only the event organizer can perform this action."
	msgUsernameTaken        = "Username is already taken!"
	msgEmailTaken           = "Email is already in use!"
	msgBadCredentials       = "Invalid username or password."
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns the first validator failure into a client message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Validation("Invalid request.")
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_without":
		return Validation(field + " is required.")
	case "max":
		return Validation(field + " must be at most " + fe.Param() + " characters.")
	case "min":
		return Validation(field + " must be at least " + fe.Param() + " characters.")
	case "email":
		return Validation(field + " must be a valid email address.")
	case "gt":
		return Validation(field + " must be greater than " + fe.Param() + ".")
	case "oneof":
		return Validation(field + " must be one of: " + fe.Param() + ".")
	}
	return Validation(field + " is invalid.")
}
