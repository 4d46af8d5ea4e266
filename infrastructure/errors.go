package infrastructure

import "errors"

var (
	ErrNotFound        = errors.New("message not found")
	ErrUnauthorized    = errors.New("not a participant of this message")
	ErrUnauthenticated = errors.New("no identity bound to this request")
	ErrPersistence     = errors.New("persistence failure")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = errors.New("password is too weak")

	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid access token")
)
