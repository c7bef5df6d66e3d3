package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/pstuifzand/dtsedit/internal/dts"
	"github.com/pstuifzand/dtsedit/internal/export"
	"github.com/pstuifzand/dtsedit/internal/model"
	"github.com/pstuifzand/dtsedit/internal/scan"
	"github.com/pstuifzand/dtsedit/internal/storage"
)

// readTree reads and parses a DTS file without a session
func readTree(ctx context.Context, path string) (string, *model.Tree, error) {
	text, err := storage.NewFileImage(path, nil).ReadDTS(ctx)
	if err != nil {
		return "", nil, err
	}
	tree, err := dts.Parse(text)
	if err != nil {
		return text, nil, fmt.Errorf("%s: %w", path, err)
	}
	return text, tree, nil
}

func (c *cli) newFormatCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "format <file>",
		Short: "Print a DTS file in canonical layout",
		Long: `The format command parses a DTS file and prints it back in the
canonical layout: tab indentation, one statement per line.

Example:
  dtsedit format kona.dts
  dtsedit format -w kona.dts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tree, err := readTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text := dts.Serialize(tree)
			if !write {
				fmt.Fprint(c.out, text)
				return nil
			}
			backups, err := c.backups()
			if err != nil {
				return err
			}
			if err := storage.NewFileImage(args[0], backups).WriteDTS(cmd.Context(), text); err != nil {
				return err
			}
			c.printf("formatted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the file (with backup)")
	return cmd
}

// scanReport is the JSON form of a scan
type scanReport struct {
	model.ScanResult
	Chip string `json:"chip,omitempty"`
}

func (c *cli) newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <file>",
		Short: "Detect how a tree lays out its GPU tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tree, err := readTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			result := scan.Scan(tree)
			report := scanReport{ScanResult: result}
			if def, ok := c.registry.Lookup(result.DetectedModel); ok {
				report.Chip = def.Name
			}
			if c.jsonOut {
				return c.printJSON(report)
			}

			chip := report.Chip
			if chip == "" {
				chip = "(no definition)"
			}
			c.printf("Model:      %s\n", result.DetectedModel)
			c.printf("Chip:       %s\n", chip)
			c.printf("Strategy:   %s\n", result.RecommendedStrategy)
			c.printf("Confidence: %s\n", result.Confidence)
			c.printf("Valid:      %t\n", result.IsValid)
			c.printf("Max levels: %d\n", result.MaxLevels)
			if result.VoltageTablePattern != "" {
				c.printf("Volt table: %s\n", result.VoltageTablePattern)
			}
			for _, g := range result.Groups {
				c.printf("  %s\n", g)
			}
			return nil
		},
	}
}

func (c *cli) newBinsCmd() *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "bins <file>",
		Short: "List the frequency bins and levels of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := c.openFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(s.Snapshot())
			}
			doc, err := s.Detached()
			if err != nil {
				return err
			}
			if markdown {
				fmt.Fprint(c.out, export.RenderMarkdown(doc))
				return nil
			}

			c.printf("Chip: %s\n", doc.Chip().Name)
			for i, bin := range doc.Bins() {
				c.printf("\nBin %d (index %d, %s): %d levels\n", bin.ID, i, doc.BinPath(i), len(bin.Levels))
				for j, level := range bin.Levels {
					c.printf("  %2d  %s\n", j, strings.Join(level.Lines, " "))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print markdown tables")
	return cmd
}

func (c *cli) newDumpCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the parsed node tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tree, err := readTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if raw {
				cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
				cfg.Fdump(c.out, tree)
				return nil
			}
			tree.Walk(func(id model.NodeID, depth int) bool {
				n := tree.Node(id)
				name := n.Name
				if id == tree.Root() {
					name = "(root)"
				}
				c.printf("%s%s [%d properties]\n", strings.Repeat("  ", depth), name, len(n.Properties))
				width := 0
				for _, p := range n.Properties {
					width = max(width, runewidth.StringWidth(p.Name))
				}
				for _, p := range n.Properties {
					c.printf("%s  %s  %s\n", strings.Repeat("  ", depth), runewidth.FillRight(p.Name, width), p.Kind)
				}
				return true
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Dump the internal node arena")
	return cmd
}
