package system

import "errors"

var (
	ErrNilSystem      = errors.New("system is nil")
	ErrUnnamedSystem  = errors.New("system name is empty")
	ErrSystemExists   = errors.New("system already registered")
	ErrSystemNotFound = errors.New("system not found")
)
