// Package cli is the dtsedit command line. Every command is a thin layer
// over an app.Session opened on a DTS file.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/ncruces/go-strftime"
	"github.com/spf13/cobra"

	"github.com/pstuifzand/dtsedit/internal/app"
	"github.com/pstuifzand/dtsedit/internal/chips"
	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/config"
	"github.com/pstuifzand/dtsedit/internal/diff"
	"github.com/pstuifzand/dtsedit/internal/history"
	"github.com/pstuifzand/dtsedit/internal/logging"
	"github.com/pstuifzand/dtsedit/internal/storage"
	"github.com/pstuifzand/dtsedit/internal/theme"
)

// cli holds the global flags and everything built from them before a
// command runs
type cli struct {
	out    io.Writer
	errOut io.Writer

	// Global flags
	configPath string
	logLevel   string
	logFile    string
	chip       string
	dataDir    string
	noColor    bool
	quiet      bool
	jsonOut    bool

	cfg      *config.Config
	logger   *slog.Logger
	closer   io.Closer
	registry *chips.Registry
	codec    *codec.Codec
	theme    *theme.Theme
	color    bool
}

// NewRootCmd builds the dtsedit command tree writing to out and errOut
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "dtsedit",
		Short: "Edit GPU frequency tables in device tree sources",
		Long: `dtsedit parses Qualcomm device tree sources, shows the GPU frequency
bins and levels they contain, and edits them with undo history, backups
and structural diffs.`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.setup() },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.closer != nil {
				return c.closer.Close()
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "Config file (default ~/.config/dtsedit/config.toml)")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&c.logFile, "log-file", "", "Append logs to this file")
	flags.StringVar(&c.chip, "chip", "", "Force a chip definition by name")
	flags.StringVar(&c.dataDir, "data-dir", "", "Directory for backups and the edit journal")
	flags.BoolVar(&c.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&c.quiet, "quiet", "q", false, "Suppress all output except errors")
	flags.BoolVar(&c.jsonOut, "json", false, "Output in JSON format")

	root.AddCommand(
		c.newFormatCmd(),
		c.newScanCmd(),
		c.newBinsCmd(),
		c.newDumpCmd(),
		c.newDiffCmd(),
		c.newEditCmd(),
		c.newHistoryCmd(),
		c.newBackupsCmd(),
		c.newExportCmd(),
		c.newServeCmd(),
		c.newSendCmd(),
		c.newWatchCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// setup loads the configuration and builds the shared collaborators
func (c *cli) setup() error {
	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadFromFile(c.configPath)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	opts := logging.Options{File: c.cfg.LogFile, Level: c.cfg.LogLevel}
	if c.logFile != "" {
		opts.File = c.logFile
	}
	if c.logLevel != "" {
		opts.Level = c.logLevel
	}
	c.logger, c.closer, err = logging.New(opts)
	if err != nil {
		return err
	}

	c.registry = chips.Default()
	if c.cfg.ChipDefinitions != "" {
		if err := c.registry.LoadFile(c.cfg.ChipDefinitions); err != nil {
			return err
		}
	}
	c.codec = codec.New(c.cfg.Codec.HexProperties...)

	c.theme = theme.LoadThemeOrDefault(c.cfg.Theme)
	c.theme.Apply(c.cfg.Colors)
	c.color = !c.noColor && isTerminal(c.out)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *cli) chipName() string {
	if c.chip != "" {
		return c.chip
	}
	return c.cfg.Chip
}

func (c *cli) diffOptions() diff.Options {
	return diff.Options{
		Alignment:        c.cfg.Diff.Alignment,
		IncludeUnchanged: c.cfg.Diff.IncludeUnchanged,
		Codec:            c.codec,
	}
}

func (c *cli) backupDir() string {
	if c.dataDir != "" {
		return filepath.Join(c.dataDir, "backups")
	}
	return c.cfg.Backup.Dir
}

func (c *cli) journal() (*history.Journal, error) {
	if c.dataDir != "" {
		return history.NewJournal(filepath.Join(c.dataDir, "journal"))
	}
	return history.NewJournal("")
}

func (c *cli) backups() (*storage.BackupManager, error) {
	return storage.NewBackupManager(c.backupDir(), c.cfg.Backup.Keep)
}

// sessionOptions returns the session options shared by every command
func (c *cli) sessionOptions() (app.Options, error) {
	opts := app.Options{
		Chips:      c.registry,
		Codec:      c.codec,
		Diff:       c.diffOptions(),
		Logger:     c.logger,
		MaxHistory: c.cfg.History.MaxEntries,
	}
	if name := c.chipName(); name != "" {
		def, err := c.registry.ByName(name)
		if err != nil {
			return app.Options{}, err
		}
		opts.Chip = &def
	}
	return opts, nil
}

// openFile opens a session on the DTS file at path with backups and the
// edit journal enabled
func (c *cli) openFile(ctx context.Context, path string) (*app.Session, *storage.FileImage, error) {
	opts, err := c.sessionOptions()
	if err != nil {
		return nil, nil, err
	}
	backups, err := c.backups()
	if err != nil {
		return nil, nil, err
	}
	journal, err := c.journal()
	if err != nil {
		return nil, nil, err
	}

	img := storage.NewFileImage(path, backups)
	opts.Image = img
	opts.Journal = journal
	opts.JournalName = path

	s := app.NewSession(opts)
	if err := s.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	c.logger.Debug("opened file", "path", path, "chip", s.Chip().Name, "session", img.SessionID)
	return s, img, nil
}

// printf prints unless in quiet mode
func (c *cli) printf(format string, args ...any) {
	if !c.quiet {
		fmt.Fprintf(c.out, format, args...)
	}
}

// formatTime formats t with the configured strftime pattern
func (c *cli) formatTime(t time.Time) string {
	layout := config.DefaultTimeFormat
	if c.cfg != nil && c.cfg.TimeFormat != "" {
		layout = c.cfg.TimeFormat
	}
	return strftime.Format(layout, t)
}

// printJSON outputs data as JSON
func (c *cli) printJSON(v any) error {
	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
