package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrMisconfigured      = errors.New("service config invalid")

	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrPostNotFound = fmt.Errorf("post %w", ErrNotFound)

	ErrNoFiles      = errors.New("no files uploaded")
	ErrFileTooLarge = errors.New("file too large")
)
