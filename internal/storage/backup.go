package storage

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	backupExt        = ".dts"
	backupTimeLayout = "20060102_150405"
	headerPrefix     = "/* dtsedit backup of "
	headerSuffix     = " */"
)

// BackupManager handles backup creation for DTS files
type BackupManager struct {
	backupDir string
	keep      int // newest backups kept per file, 0 keeps all
}

// NewBackupManager creates a backup manager storing into dir, or into the
// default backup directory when dir is empty
func NewBackupManager(dir string, keep int) (*BackupManager, error) {
	if dir == "" {
		dir = getBackupDir()
	}
	// Ensure backup directory exists
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	return &BackupManager{
		backupDir: dir,
		keep:      keep,
	}, nil
}

// Dir returns the backup directory
func (bm *BackupManager) Dir() string {
	return bm.backupDir
}

// CreateBackup writes a timestamped copy of text. The first line records
// the absolute path of the original file.
func (bm *BackupManager) CreateBackup(text, originalPath, sessionID string) (BackupMetadata, error) {
	return bm.createBackupAt(text, originalPath, sessionID, time.Now())
}

func (bm *BackupManager) createBackupAt(text, originalPath, sessionID string, now time.Time) (BackupMetadata, error) {
	// Convert original path to absolute path before storing
	absPath, err := filepath.Abs(originalPath)
	if err != nil {
		// If we can't get absolute path, use the original
		absPath = originalPath
	}

	backupPath := filepath.Join(bm.backupDir, bm.generateBackupFilename(sessionID, now))
	data := headerPrefix + absPath + headerSuffix + "\n" + text
	if err := os.WriteFile(backupPath, []byte(data), 0o644); err != nil {
		return BackupMetadata{}, fmt.Errorf("failed to write backup file: %w", err)
	}

	meta := BackupMetadata{
		FilePath:     backupPath,
		Timestamp:    now.Truncate(time.Second),
		SessionID:    sessionID,
		OriginalFile: absPath,
	}
	if _, err := bm.Prune(absPath); err != nil {
		return meta, err
	}
	return meta, nil
}

// generateBackupFilename creates a filename in the format: YYYYMMDD_HHMMSS_<sessionID>.dts
func (bm *BackupManager) generateBackupFilename(sessionID string, now time.Time) string {
	return fmt.Sprintf("%s_%s%s", now.Format(backupTimeLayout), sessionID, backupExt)
}

// getBackupDir returns the path to the backup directory
func getBackupDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to /tmp if home directory cannot be determined
		return filepath.Join("/tmp", ".dtsedit", "backups")
	}
	return filepath.Join(homeDir, ".local", "share", "dtsedit", "backups")
}

// GetBackupDir is a public function to get the default backup directory
func GetBackupDir() string {
	return getBackupDir()
}

// BackupMetadata holds parsed information about a backup file
type BackupMetadata struct {
	FilePath     string    // Full path to backup file
	Timestamp    time.Time // Parsed timestamp from filename
	SessionID    string    // 8-character session ID
	OriginalFile string    // Original filename stored in backup
}

// FindBackupsForFile returns all backup files for a given original filename, sorted chronologically.
// An empty path returns the backups of every file.
func (bm *BackupManager) FindBackupsForFile(originalFilePath string) ([]BackupMetadata, error) {
	entries, err := os.ReadDir(bm.backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupMetadata

	// Normalize the search path to absolute for consistent comparison
	var searchPath string
	if originalFilePath != "" {
		absPath, err := filepath.Abs(originalFilePath)
		if err != nil {
			searchPath = originalFilePath
		} else {
			searchPath = filepath.Clean(absPath)
		}
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), backupExt) {
			continue
		}

		metadata, err := parseBackupFilename(entry.Name(), filepath.Join(bm.backupDir, entry.Name()))
		if err != nil {
			continue // Skip files that can't be parsed
		}

		if searchPath != "" && filepath.Clean(metadata.OriginalFile) != searchPath {
			continue
		}

		backups = append(backups, metadata)
	}

	sortBackupsByTimestamp(backups)
	return backups, nil
}

// ReadBackup returns the DTS text of a backup without its header line
func (bm *BackupManager) ReadBackup(meta BackupMetadata) (string, error) {
	data, err := os.ReadFile(meta.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to read backup: %w", err)
	}
	text := string(data)
	if first, rest, ok := strings.Cut(text, "\n"); ok && isHeader(first) {
		return rest, nil
	}
	return text, nil
}

// Prune removes the oldest backups of a file beyond the configured limit
// and returns how many were removed
func (bm *BackupManager) Prune(originalFilePath string) (int, error) {
	if bm.keep <= 0 {
		return 0, nil
	}
	backups, err := bm.FindBackupsForFile(originalFilePath)
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(backups)-removed > bm.keep {
		if err := os.Remove(backups[removed].FilePath); err != nil {
			return removed, fmt.Errorf("failed to remove old backup: %w", err)
		}
		removed++
	}
	return removed, nil
}

// IsBackupFile reports whether path lies in the backup directory
func (bm *BackupManager) IsBackupFile(path string) bool {
	if path == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	dir, err := filepath.Abs(bm.backupDir)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == filepath.Clean(dir)
}

// parseBackupFilename extracts metadata from a backup filename
// Expected format: YYYYMMDD_HHMMSS_<sessionID>.dts
func parseBackupFilename(filename string, fullPath string) (BackupMetadata, error) {
	name := strings.TrimSuffix(filename, backupExt)
	if len(name) < len(backupTimeLayout)+2 || name[len(backupTimeLayout)] != '_' {
		return BackupMetadata{}, fmt.Errorf("filename too short")
	}

	timestamp, err := time.ParseInLocation(backupTimeLayout, name[:len(backupTimeLayout)], time.Local)
	if err != nil {
		return BackupMetadata{}, fmt.Errorf("invalid timestamp format: %w", err)
	}

	// Read the header line to get original filename
	var originalFile string
	if f, err := os.Open(fullPath); err == nil {
		line, _ := bufio.NewReader(f).ReadString('\n')
		f.Close()
		line = strings.TrimRight(line, "\r\n")
		if isHeader(line) {
			originalFile = strings.TrimSuffix(strings.TrimPrefix(line, headerPrefix), headerSuffix)
		}
	}

	return BackupMetadata{
		FilePath:     fullPath,
		Timestamp:    timestamp,
		SessionID:    name[len(backupTimeLayout)+1:],
		OriginalFile: originalFile,
	}, nil
}

func isHeader(line string) bool {
	return strings.HasPrefix(line, headerPrefix) && strings.HasSuffix(line, headerSuffix)
}

// sortBackupsByTimestamp sorts backups chronologically (oldest first)
func sortBackupsByTimestamp(backups []BackupMetadata) {
	slices.SortStableFunc(backups, func(a, b BackupMetadata) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.FilePath, b.FilePath)
	})
}

// GenerateSessionID creates a random 8-character session ID for backup naming
func GenerateSessionID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
