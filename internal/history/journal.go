package history

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Journal keeps the descriptions of saved edits per edited file, in TOML
// files under a data directory
type Journal struct {
	dir string
}

// Record is one saved edit
type Record struct {
	Time        time.Time `toml:"time"`
	File        string    `toml:"file"`
	Description string    `toml:"description"`
}

// journalFile represents the structure of a journal TOML file
type journalFile struct {
	Records []Record `toml:"records"`
}

// NewJournal creates a journal in dir, or in ~/.local/share/dtsedit/journal
// when dir is empty
func NewJournal(dir string) (*Journal, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(homeDir, ".local", "share", "dtsedit", "journal")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Journal{dir: dir}, nil
}

// path maps an edited file to its journal file
func (j *Journal) path(file string) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(j.dir, filepath.Base(file)+"-"+hex.EncodeToString(sum[:4])+".toml")
}

// Load returns the records of file, oldest first
func (j *Journal) Load(file string) ([]Record, error) {
	data, err := os.ReadFile(j.path(file))
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, err
	}

	var jf journalFile
	if err := toml.Unmarshal(data, &jf); err != nil {
		// a corrupted journal is not worth failing a save over
		return []Record{}, nil
	}
	return jf.Records, nil
}

// Append adds the descriptions to the journal of file
func (j *Journal) Append(file string, descriptions ...string) error {
	records, err := j.Load(file)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	for _, d := range descriptions {
		records = append(records, Record{Time: now, File: file, Description: d})
	}

	data, err := toml.Marshal(journalFile{Records: records})
	if err != nil {
		return err
	}
	return os.WriteFile(j.path(file), data, 0o644)
}
