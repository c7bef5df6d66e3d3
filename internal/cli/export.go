package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pstuifzand/dtsedit/internal/export"
)

func (c *cli) newExportCmd() *cobra.Command {
	var (
		dir      string
		name     string
		split    bool
		markdown string
	)
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the tables of a file as a bundle or markdown",
		Long: `The export command writes the document as a single DTS file, as one
DTS fragment per bin with a manifest.json (--split), or as markdown
tables (--markdown).

Example:
  dtsedit export kona.dts --dir out
  dtsedit export lahaina.dts --dir out --split
  dtsedit export kona.dts --markdown kona.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := c.openFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc, err := s.Detached()
			if err != nil {
				return err
			}

			if markdown != "" {
				if err := export.ExportToMarkdown(doc, markdown); err != nil {
					return err
				}
				c.printf("wrote %s\n", markdown)
				return nil
			}

			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			manifest, err := export.WriteBundle(doc, dir, name, split)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(manifest)
			}
			for _, f := range manifest.Files {
				c.printf("wrote %s\n", filepath.Join(dir, f.Name))
			}
			if split {
				c.printf("wrote %s\n", filepath.Join(dir, export.ManifestName))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Output directory")
	cmd.Flags().StringVar(&name, "name", "", "Base name of the bundle files (default: input name)")
	cmd.Flags().BoolVar(&split, "split", false, "Write one file per bin plus a manifest")
	cmd.Flags().StringVar(&markdown, "markdown", "", "Write markdown tables to this file instead")
	return cmd
}
