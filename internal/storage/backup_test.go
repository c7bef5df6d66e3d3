package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBackupManagerCreateBackup(t *testing.T) {
	bm, err := NewBackupManager(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("Failed to create backup manager: %v", err)
	}

	originalPath := filepath.Join(t.TempDir(), "kona.dts")
	text := "/dts-v1/;\n\n/ {\n};\n"
	meta, err := bm.CreateBackup(text, originalPath, "test1234")
	if err != nil {
		t.Fatalf("Failed to create backup: %v", err)
	}

	// Verify backup file contains the header and our data
	data, err := os.ReadFile(meta.FilePath)
	if err != nil {
		t.Fatalf("Failed to read backup file: %v", err)
	}
	if !strings.HasPrefix(string(data), "/* dtsedit backup of "+originalPath+" */\n") {
		t.Fatalf("Backup does not start with the header: %q", data)
	}

	restored, err := bm.ReadBackup(meta)
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if restored != text {
		t.Fatalf("Expected %q, got %q", text, restored)
	}

	backups, err := bm.FindBackupsForFile(originalPath)
	if err != nil {
		t.Fatalf("FindBackupsForFile failed: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("Expected 1 backup, got %d", len(backups))
	}
	if backups[0].OriginalFile != originalPath {
		t.Errorf("Expected original file '%s', got '%s'", originalPath, backups[0].OriginalFile)
	}
	if backups[0].SessionID != "test1234" {
		t.Errorf("Expected session 'test1234', got '%s'", backups[0].SessionID)
	}
}

func TestBackupFilenameFormat(t *testing.T) {
	bm, err := NewBackupManager(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("Failed to create backup manager: %v", err)
	}

	now := time.Date(2025, 11, 3, 15, 4, 5, 0, time.Local)
	filename := bm.generateBackupFilename("abc12345", now)
	if filename != "20251103_150405_abc12345.dts" {
		t.Fatalf("Unexpected filename: %s", filename)
	}

	meta, err := parseBackupFilename(filename, filepath.Join(bm.Dir(), filename))
	if err != nil {
		t.Fatalf("parseBackupFilename failed: %v", err)
	}
	if !meta.Timestamp.Equal(now) {
		t.Errorf("Expected timestamp %v, got %v", now, meta.Timestamp)
	}
	if meta.SessionID != "abc12345" {
		t.Errorf("Expected session 'abc12345', got '%s'", meta.SessionID)
	}

	if _, err := parseBackupFilename("short.dts", "short.dts"); err == nil {
		t.Error("Expected an error for a short filename")
	}
}

func TestFindBackupsFiltersAndSorts(t *testing.T) {
	bm, err := NewBackupManager(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("Failed to create backup manager: %v", err)
	}
	kona := filepath.Join(t.TempDir(), "kona.dts")
	lahaina := filepath.Join(t.TempDir(), "lahaina.dts")
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.Local)

	if _, err := bm.createBackupAt("b", kona, "sessionA", base.Add(2*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if _, err := bm.createBackupAt("a", kona, "sessionA", base); err != nil {
		t.Fatal(err)
	}
	if _, err := bm.createBackupAt("x", lahaina, "sessionB", base.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	// Not a backup
	if err := os.WriteFile(filepath.Join(bm.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	backups, err := bm.FindBackupsForFile(kona)
	if err != nil {
		t.Fatalf("FindBackupsForFile failed: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("Expected 2 backups, got %d", len(backups))
	}
	if !backups[0].Timestamp.Before(backups[1].Timestamp) {
		t.Errorf("Backups are not sorted oldest first")
	}

	all, _ := bm.FindBackupsForFile("")
	if len(all) != 3 {
		t.Errorf("Expected 3 backups in total, got %d", len(all))
	}
}

func TestBackupPrune(t *testing.T) {
	bm, err := NewBackupManager(t.TempDir(), 2)
	if err != nil {
		t.Fatalf("Failed to create backup manager: %v", err)
	}
	path := filepath.Join(t.TempDir(), "kona.dts")
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.Local)

	for i := 0; i < 4; i++ {
		if _, err := bm.createBackupAt(string(rune('a'+i)), path, "prune123", base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("createBackupAt failed: %v", err)
		}
	}

	backups, _ := bm.FindBackupsForFile(path)
	if len(backups) != 2 {
		t.Fatalf("Expected 2 backups after pruning, got %d", len(backups))
	}
	newest, _ := bm.ReadBackup(backups[1])
	if newest != "d" {
		t.Errorf("Expected newest backup 'd', got %q", newest)
	}
}

func TestIsBackupFile(t *testing.T) {
	bm, err := NewBackupManager(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("Failed to create backup manager: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"Empty path", "", false},
		{"Regular file", "/tmp/kona.dts", false},
		{"Backup file", filepath.Join(bm.Dir(), "20251103_150405_abc12345.dts"), true},
		{"Nested in backup dir", filepath.Join(bm.Dir(), "sub", "x.dts"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bm.IsBackupFile(tt.path); got != tt.expected {
				t.Errorf("IsBackupFile(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestSessionIDGeneration(t *testing.T) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	sessionID := GenerateSessionID()
	if len(sessionID) != 8 {
		t.Fatalf("Session ID should be 8 characters, got %d", len(sessionID))
	}
	for _, ch := range sessionID {
		if !strings.ContainsRune(charset, ch) {
			t.Fatalf("Session ID contains invalid character: %c", ch)
		}
	}
}
