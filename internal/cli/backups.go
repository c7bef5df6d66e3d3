package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pstuifzand/dtsedit/internal/app"
	"github.com/pstuifzand/dtsedit/internal/storage"
)

func (c *cli) newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <file>",
		Short: "Show the saved edits of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := c.journal()
			if err != nil {
				return err
			}
			records, err := journal.Load(args[0])
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(records)
			}
			if len(records) == 0 {
				c.printf("No edits recorded for %s\n", args[0])
				return nil
			}
			for _, r := range records {
				c.printf("%s  %s\n", c.formatTime(r.Time.Local()), r.Description)
			}
			return nil
		},
	}
}

func (c *cli) newBackupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List and restore backups",
	}

	list := &cobra.Command{
		Use:   "list [file]",
		Short: "List backups, oldest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bm, err := c.backups()
			if err != nil {
				return err
			}
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			backups, err := bm.FindBackupsForFile(file)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(backups)
			}
			if len(backups) == 0 {
				c.printf("No backups in %s\n", bm.Dir())
				return nil
			}
			for _, b := range backups {
				c.printf("%s  %-14s %s  %s\n",
					c.formatTime(b.Timestamp),
					humanize.Time(b.Timestamp),
					b.SessionID,
					b.OriginalFile)
			}
			return nil
		},
	}

	var (
		steps    int
		sameSess string
		dryRun   bool
		fromFile string
	)
	restore := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace a file with one of its backups",
		Long: `The restore command replaces a file with its most recent backup, or
with an older one when --steps is given. The current content is backed up
first, so a restore can itself be restored.

Example:
  dtsedit backups restore kona.dts
  dtsedit backups restore kona.dts --steps 3
  dtsedit backups restore kona.dts --backup ~/.local/share/dtsedit/backups/20251103_150405_abc12345.dts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bm, err := c.backups()
			if err != nil {
				return err
			}
			meta, err := c.pickBackup(bm, args[0], fromFile, sameSess, steps)
			if err != nil {
				return err
			}

			s, _, err := c.openFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := s.RestoreBackup(bm, meta); err != nil {
				return err
			}
			when := c.formatTime(meta.Timestamp)
			if !s.IsDirty() {
				c.printf("backup of %s matches %s\n", when, args[0])
				return nil
			}
			if dryRun {
				c.printf("would restore backup of %s\n", when)
				return nil
			}
			if err := s.Save(cmd.Context()); err != nil {
				return err
			}
			c.printf("restored backup of %s (%s)\n", when, humanize.Time(meta.Timestamp))
			return nil
		},
	}
	restore.Flags().IntVar(&steps, "steps", 1, "How many backups to go back")
	restore.Flags().StringVar(&sameSess, "session", "", "Only consider backups of this session")
	restore.Flags().StringVar(&fromFile, "backup", "", "Restore this backup file")
	restore.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Do not save the restored file")

	cmd.AddCommand(list, restore)
	return cmd
}

// pickBackup selects the backup to restore: the named backup file, or the
// backup steps back from the newest one
func (c *cli) pickBackup(bm *storage.BackupManager, file, backupFile, sessionID string, steps int) (storage.BackupMetadata, error) {
	backups, err := bm.FindBackupsForFile(file)
	if err != nil {
		return storage.BackupMetadata{}, err
	}

	if backupFile != "" {
		abs, err := filepath.Abs(backupFile)
		if err != nil {
			return storage.BackupMetadata{}, err
		}
		for _, b := range backups {
			if b.FilePath == abs || b.FilePath == backupFile {
				return b, nil
			}
		}
		return storage.BackupMetadata{}, fmt.Errorf("%s is not a backup of %s", backupFile, file)
	}

	if steps < 1 {
		return storage.BackupMetadata{}, errors.New("steps must be at least 1")
	}
	var (
		current storage.BackupMetadata
		ok      bool
	)
	for i := 0; i < steps; i++ {
		current, ok = app.PreviousBackup(backups, current.FilePath, sessionID)
		if !ok {
			return storage.BackupMetadata{}, fmt.Errorf("no backup %d steps back for %s", steps, file)
		}
	}
	return current, nil
}
