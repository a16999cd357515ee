package apperr

import "net/http"

// Kind is the fixed enumeration of failure categories the API can report.
type Kind string

const (
	KindUnprocessableEntity Kind = "UNPROCESSABLE_ENTITY"
	KindInvalidPassword     Kind = "INVALID_PASSWORD"
	KindEmailAlreadyTaken   Kind = "EMAIL_ALREADY_TAKEN"
	KindServer              Kind = "SERVER"
)

// Error pairs a Kind with a human-readable message. It travels from the
// service layer up to the transport layer unchanged.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Unprocessable(message string) *Error {
	return New(KindUnprocessableEntity, message)
}

func InvalidPassword(message string) *Error {
	return New(KindInvalidPassword, message)
}

func EmailTaken(message string) *Error {
	return New(KindEmailAlreadyTaken, message)
}

func Server(message string) *Error {
	return New(KindServer, message)
}

// HTTPStatus maps a kind to its transport status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindUnprocessableEntity, KindInvalidPassword:
		return http.StatusUnprocessableEntity
	case KindEmailAlreadyTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code is the stable snake_case identifier used in JSON error bodies.
func (e *Error) Code() string {
	switch e.Kind {
	case KindUnprocessableEntity:
		return "unprocessable_entity"
	case KindInvalidPassword:
		return "invalid_password"
	case KindEmailAlreadyTaken:
		return "email_taken"
	default:
		return "server_error"
	}
}
