package project

import "errors"

var (
	// ErrInvalidIndex indicates a bin, level or line index outside the current bounds.
	ErrInvalidIndex = errors.New("project: invalid index")

	// ErrUnmatchedPattern indicates that no table in the tree matches the chip definition.
	ErrUnmatchedPattern = errors.New("project: no table matches the chip definition")

	// ErrTableFull indicates an insert past the chip's maximum level count.
	ErrTableFull = errors.New("project: table is full")

	// ErrTableEmpty indicates an attempt to delete the last level of a bin.
	ErrTableEmpty = errors.New("project: table cannot be empty")

	// ErrUnknownField indicates an offset on a property no level carries.
	ErrUnknownField = errors.New("project: no level has this property")

	// ErrOutOfRange indicates an offset that would make a value negative.
	ErrOutOfRange = errors.New("project: value out of range")

	// ErrReservedProperty indicates an edit of the reg property, which the table manages.
	ErrReservedProperty = errors.New("project: reg is managed by the table")
)
