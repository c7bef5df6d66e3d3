package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pstuifzand/dtsedit/internal/chips"
	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/diff"
	"github.com/pstuifzand/dtsedit/internal/dts"
	"github.com/pstuifzand/dtsedit/internal/model"
	"github.com/pstuifzand/dtsedit/internal/scan"
	"github.com/pstuifzand/dtsedit/internal/storage"
	"github.com/pstuifzand/dtsedit/internal/theme"
)

type options struct {
	verbose   bool
	summary   bool
	color     bool
	chip      string
	backupDir string
}

func main() {
	var opts options
	flag.BoolVar(&opts.verbose, "v", false, "Verbose output (include raw line changes)")
	flag.BoolVar(&opts.summary, "s", false, "Summary only (counts, no details)")
	flag.BoolVar(&opts.color, "color", false, "Colorize output")
	flag.StringVar(&opts.chip, "chip", "", "Chip definition to use instead of detection")
	flag.StringVar(&opts.backupDir, "backup-dir", "", "Backup directory (default ~/.local/share/dtsedit/backups)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dts-diff [options] <file.dts> [file2.dts]

Show the frequency table changes between DTS files.

Modes:
  Single file:  dts-diff file.dts
                Shows the change history across all backups of the file

  Two files:    dts-diff old.dts new.dts
                Compares two specific files

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Output shows:
  - Levels added to or removed from each bin
  - Modified levels with the properties that changed
  - Changes outside the tables under "General"
`)
	}

	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if len(args) == 1 {
		// Single-file mode: show history across backups
		handleSingleFileMode(args[0], opts)
	} else {
		// Two-file mode: compare two specific files
		handleTwoFileMode(args[0], args[1], opts)
	}
}

// handleTwoFileMode compares two specific files
func handleTwoFileMode(file1Path, file2Path string, opts options) {
	text1, err := readText(file1Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading first file: %v\n", err)
		os.Exit(1)
	}
	text2, err := readText(file2Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading second file: %v\n", err)
		os.Exit(1)
	}

	results, err := compare(text1, text2, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error comparing files: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== DTS Diff: %s → %s ===\n\n", file1Path, file2Path)
	printResults(results, opts, "No changes detected")
}

// handleSingleFileMode finds backups for a file and shows the diff history
func handleSingleFileMode(filePath string, opts options) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filePath
	}

	bm, err := storage.NewBackupManager(opts.backupDir, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing backup manager: %v\n", err)
		os.Exit(1)
	}

	backups, err := bm.FindBackupsForFile(absPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching for backups: %v\n", err)
		os.Exit(1)
	}

	if len(backups) == 0 {
		fmt.Fprintf(os.Stderr, "No backups found for %s\n", absPath)
		fmt.Fprintf(os.Stderr, "Note: Backups are stored in %s\n", bm.Dir())
		fmt.Fprintf(os.Stderr, "A backup is written every time dtsedit saves the file.\n")
		os.Exit(1)
	}

	if len(backups) < 2 {
		fmt.Fprintf(os.Stderr, "Only found %d backup, need at least 2 to compare\n", len(backups))
		os.Exit(1)
	}

	fmt.Printf("=== Backup History for: %s ===\n", filePath)
	fmt.Printf("Found %d backups\n\n", len(backups))

	// Compare each consecutive pair
	for i := 0; i < len(backups)-1; i++ {
		backup1 := backups[i]
		backup2 := backups[i+1]

		text1, err := bm.ReadBackup(backup1)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading backup %d: %v\n", i+1, err)
			continue
		}
		text2, err := bm.ReadBackup(backup2)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading backup %d: %v\n", i+2, err)
			continue
		}

		results, err := compare(text1, text2, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error comparing backups %d and %d: %v\n", i+1, i+2, err)
			continue
		}

		fmt.Printf("--- %s (backup %d, session %s)\n", formatBackupTime(backup1.Timestamp), i+1, backup1.SessionID)
		fmt.Printf("+++ %s (backup %d, session %s)\n", formatBackupTime(backup2.Timestamp), i+2, backup2.SessionID)
		fmt.Println()

		printResults(results, opts, "No changes between these backups")
		fmt.Println()
	}
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return storage.Decode(data)
}

// compare parses both texts and diffs them with the chip detected in the
// older one
func compare(oldText, newText string, opts options) ([]diff.Result, error) {
	oldTree, err := dts.Parse(oldText)
	if err != nil {
		return nil, fmt.Errorf("old: %w", err)
	}
	newTree, err := dts.Parse(newText)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	chip, err := resolveChip(oldTree, opts.chip)
	if err != nil {
		return nil, err
	}
	c := codec.New()
	return diff.Trees(oldTree, newTree, chip, c, diff.Options{Codec: c})
}

func resolveChip(tree *model.Tree, name string) (model.ChipDefinition, error) {
	registry := chips.Default()
	result := scan.Scan(tree)
	if name != "" {
		return registry.ByName(name)
	}
	if d, ok := registry.Lookup(result.DetectedModel); ok {
		return d, nil
	}
	if !result.IsValid {
		return model.ChipDefinition{}, fmt.Errorf("no frequency table found (model %q)", result.DetectedModel)
	}
	return result.Definition(), nil
}

func printResults(results []diff.Result, opts options, empty string) {
	lines := diff.BuildDiffLines(results, opts.verbose)
	if opts.summary {
		kept := lines[:0]
		for _, l := range lines {
			if l.Type == diff.DiffTypeSummary {
				kept = append(kept, l)
			}
		}
		lines = kept
	}
	if diff.Summarize(results).Changed() == 0 {
		fmt.Println(empty)
		return
	}
	fmt.Print(theme.Default().Render(lines, opts.color))
}

// formatBackupTime formats a backup timestamp for display
func formatBackupTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
