package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pstuifzand/dtsedit/internal/app"
	"github.com/pstuifzand/dtsedit/internal/diff"
	"github.com/pstuifzand/dtsedit/internal/model"
)

func (c *cli) newDiffCmd() *cobra.Command {
	var (
		unified   bool
		verbose   bool
		alignment string
	)
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare the frequency tables of two files",
		Long: `The diff command projects both files into bins and levels and lists
added, removed and modified levels per bin. Changes outside the tables are
listed under General.

Example:
  dtsedit diff stock.dts tuned.dts
  dtsedit diff stock.dts tuned.dts --verbose
  dtsedit diff stock.dts tuned.dts --unified`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.sessionOptions()
			if err != nil {
				return err
			}
			if alignment != "" {
				if opts.Diff.Alignment, err = diff.ParseAlignment(alignment); err != nil {
					return err
				}
			}

			var trees [2]*model.Tree
			var texts [2]string
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, path := range args {
				g.Go(func() error {
					text, tree, err := readTree(ctx, path)
					texts[i], trees[i] = text, tree
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			// the old file is the baseline, the new one an edit on top of it
			s := app.NewSession(opts)
			if err := s.Open(trees[0]); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err := s.ApplyParsed(app.ParseResult{Text: texts[1], Tree: trees[1]}); err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			if unified {
				out, err := s.Unified(filepath.Base(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprint(c.out, c.theme.RenderUnified(out, c.color))
				return nil
			}

			results, err := s.Diff()
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(results)
			}
			lines := diff.BuildDiffLines(results, verbose)
			if len(lines) == 0 {
				c.printf("No differences found\n")
				return nil
			}
			fmt.Fprint(c.out, c.theme.Render(lines, c.color))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&unified, "unified", "u", false, "Show a unified text diff")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include raw line changes outside the tables")
	cmd.Flags().StringVar(&alignment, "alignment", "", "Level alignment: auto, identity, position, lcs")
	return cmd
}
