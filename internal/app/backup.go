package app

import (
	"fmt"

	"github.com/pstuifzand/dtsedit/internal/storage"
)

// Backups is the store a session restores earlier versions from
type Backups interface {
	FindBackupsForFile(originalFilePath string) ([]storage.BackupMetadata, error)
	ReadBackup(meta storage.BackupMetadata) (string, error)
}

// RestoreBackup replaces the document with the content of a backup. The
// restore is an undoable edit; a backup that does not parse is kept as
// pending text like any other rejected text.
func (s *Session) RestoreBackup(store Backups, backup storage.BackupMetadata) error {
	text, err := store.ReadBackup(backup)
	if err != nil {
		return classify("restore", err)
	}
	if err := s.SetText(text); err != nil {
		return fmt.Errorf("restore %s: %w", backup.Timestamp.Format("2006-01-02 15:04:05"), err)
	}

	s.mu.Lock()
	s.log.Info("restored backup", "file", backup.FilePath, "session", backup.SessionID)
	s.mu.Unlock()
	return nil
}

// PreviousBackup returns the backup before the one at current, or the most
// recent backup when current is not in the list. A non-empty sessionID
// skips backups of other sessions. Backups are sorted oldest first.
func PreviousBackup(backups []storage.BackupMetadata, current, sessionID string) (storage.BackupMetadata, bool) {
	start := indexOf(backups, current)
	if start == -1 {
		start = len(backups)
	}
	for i := start - 1; i >= 0; i-- {
		if sessionID == "" || backups[i].SessionID == sessionID {
			return backups[i], true
		}
	}
	return storage.BackupMetadata{}, false
}

// NextBackup returns the backup after the one at current. There is no next
// backup when current is not in the list.
func NextBackup(backups []storage.BackupMetadata, current, sessionID string) (storage.BackupMetadata, bool) {
	start := indexOf(backups, current)
	if start == -1 {
		return storage.BackupMetadata{}, false
	}
	for i := start + 1; i < len(backups); i++ {
		if sessionID == "" || backups[i].SessionID == sessionID {
			return backups[i], true
		}
	}
	return storage.BackupMetadata{}, false
}

func indexOf(backups []storage.BackupMetadata, path string) int {
	for i, b := range backups {
		if path != "" && b.FilePath == path {
			return i
		}
	}
	return -1
}
