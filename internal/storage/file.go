// Package storage reads and writes DTS text on disk and keeps timestamped
// backups of every file it overwrites.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrReadOnly is returned when writing to a file opened from the backup
// directory
var ErrReadOnly = errors.New("storage: file is read-only")

// FileImage is a DTS file standing in for a boot image. Reads accept UTF-8
// with or without BOM, UTF-16 with BOM and Latin-1; writes are UTF-8.
type FileImage struct {
	Path      string
	ReadOnly  bool
	SessionID string
	backups   *BackupManager
}

// NewFileImage creates a file image. A nil backup manager disables backups.
// Files inside the backup directory are opened read-only.
func NewFileImage(path string, backups *BackupManager) *FileImage {
	f := &FileImage{
		Path:      path,
		SessionID: GenerateSessionID(),
		backups:   backups,
	}
	if backups != nil {
		f.ReadOnly = backups.IsBackupFile(path)
	}
	return f
}

// ReadDTS loads and decodes the file
func (f *FileImage) ReadDTS(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return Decode(data)
}

// WriteDTS backs up the current file content and replaces it with text
func (f *FileImage) WriteDTS(ctx context.Context, text string) error {
	if f.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, f.Path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if f.backups != nil {
		if old, err := os.ReadFile(f.Path); err == nil {
			decoded, err := Decode(old)
			if err != nil {
				return err
			}
			if _, err := f.backups.CreateBackup(decoded, f.Path, f.SessionID); err != nil {
				return err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read file: %w", err)
		}
	}

	// Ensure directory exists
	dir := filepath.Dir(f.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if _, err := io.WriteString(tmp, text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Exists checks if the file exists
func (f *FileImage) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// Decode converts file content to a UTF-8 string. A byte order mark selects
// UTF-8 or UTF-16 and is stripped; content without BOM that is not valid
// UTF-8 is read as Latin-1.
func Decode(data []byte) (string, error) {
	var decoder transform.Transformer = unicode.BOMOverride(unicode.UTF8.NewDecoder())
	if !hasBOM(data) && !utf8.Valid(data) {
		decoder = charmap.Windows1252.NewDecoder()
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), decoder))
	if err != nil {
		return "", fmt.Errorf("failed to decode file: %w", err)
	}
	return string(out), nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}
