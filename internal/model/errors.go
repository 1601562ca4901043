package model

import "errors"

// Store-level errors shared by every repository implementation.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	ErrInvalidID = errors.New("invalid id")

	ErrInvalidRange = errors.New("negative offset or limit")
)
