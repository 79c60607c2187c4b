package idstring

import "errors"

var (
	// Lookup errors

	ErrEmptyPath = errors.New("idstring: empty path")
	ErrNotFound  = errors.New("idstring: path not registered")

	// Set errors

	ErrIndexOutOfRange = errors.New("idstring: index out of range")

	// Declaration errors

	ErrSlotUnset = errors.New("idstring: slot target is nil")
)
