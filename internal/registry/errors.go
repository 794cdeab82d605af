package registry

import "errors"

var (
	ErrAlreadyRegistered = errors.New("registry: object id already registered")
	ErrUnknownID         = errors.New("registry: unknown object id")
	ErrInvalidObject     = errors.New("registry: object exists with different interface")
)
