package models

import "errors"

// Domain failures callers are expected to handle. Handlers translate these
// into typed JSON responses instead of surfacing them as 500s.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrShiftConflict     = errors.New("shift conflict")
	ErrEquipmentConflict = errors.New("equipment maintenance conflict")
	ErrInvalidInterval   = errors.New("interval start must be before end")
)
