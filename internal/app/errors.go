package app

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrIO wraps a read or write failure of the boot image collaborator
	ErrIO = errors.New("app: i/o error")

	// ErrBootImage wraps any other failure reported by the boot image collaborator
	ErrBootImage = errors.New("app: boot image error")

	// ErrRootAccess indicates the collaborator was denied access to the image
	ErrRootAccess = errors.New("app: root access denied")

	// ErrNoDocument is returned by edits before any text was loaded
	ErrNoDocument = errors.New("app: no document loaded")

	// ErrNoImage is returned by Load and Save without a boot image
	ErrNoImage = errors.New("app: no boot image")
)

// classify wraps a collaborator error with the matching sentinel, keeping
// the original error in the chain
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, ErrIO), errors.Is(err, ErrBootImage), errors.Is(err, ErrRootAccess):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: %w: %w", op, ErrRootAccess, err)
	case errors.As(err, &pathErr):
		return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrBootImage, err)
	}
}
