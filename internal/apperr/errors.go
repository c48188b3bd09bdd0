package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInconsistentFilter = errors.New("filter mode set without its selector")
)
