package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pstuifzand/dtsedit/internal/app"
	"github.com/pstuifzand/dtsedit/internal/diff"
	"github.com/pstuifzand/dtsedit/internal/model"
)

func (c *cli) newEditCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change the levels of a frequency bin",
		Long: `The edit commands apply one change to a DTS file and save it. The
previous content is kept as a backup and the change is recorded in the
edit journal. Bins and levels are addressed by index, as listed by
'dtsedit bins'.

Example:
  dtsedit edit move kona.dts 0 2 0
  dtsedit edit offset kona.dts 0 qcom,gpu-freq --by 50000000
  dtsedit edit delete kona.dts 0 3 --dry-run`,
	}
	cmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show the change instead of saving it")

	edit := func(use, short string, args cobra.PositionalArgs, apply func(s *app.Session, args []string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.runEdit(cmd, args, dryRun, apply)
			},
		}
	}

	offset := edit("offset <file> <bin> <field>", "Add a delta to a field in every level",
		cobra.ExactArgs(3), nil)
	var delta int64
	offset.Flags().Int64Var(&delta, "by", 0, "Delta to add (may be negative)")
	offset.MarkFlagRequired("by")
	offset.RunE = func(cmd *cobra.Command, args []string) error {
		return c.runEdit(cmd, args, dryRun, func(s *app.Session, args []string) error {
			bin, err := intArg(args[1], "bin")
			if err != nil {
				return err
			}
			return s.ApplyOffset(bin, args[2], delta)
		})
	}

	cmd.AddCommand(
		edit("insert <file> <bin> <index> <line>...", "Insert a level built from property lines",
			cobra.MinimumNArgs(4), func(s *app.Session, args []string) error {
				ints, err := intArgs(args[1:3], "bin", "index")
				if err != nil {
					return err
				}
				return s.InsertLevel(ints[0], ints[1], model.Level{Lines: args[3:]})
			}),
		edit("add-top <file> <bin>", "Copy the first level to the top",
			cobra.ExactArgs(2), func(s *app.Session, args []string) error {
				bin, err := intArg(args[1], "bin")
				if err != nil {
					return err
				}
				return s.AddLevelTop(bin)
			}),
		edit("add-bottom <file> <bin>", "Copy the last level to the bottom",
			cobra.ExactArgs(2), func(s *app.Session, args []string) error {
				bin, err := intArg(args[1], "bin")
				if err != nil {
					return err
				}
				return s.AddLevelBottom(bin)
			}),
		edit("dup <file> <bin> <src> <dst>", "Duplicate a level",
			cobra.ExactArgs(4), func(s *app.Session, args []string) error {
				ints, err := intArgs(args[1:], "bin", "src", "dst")
				if err != nil {
					return err
				}
				return s.DuplicateLevel(ints[0], ints[1], ints[2])
			}),
		edit("delete <file> <bin> <index>", "Delete a level",
			cobra.ExactArgs(3), func(s *app.Session, args []string) error {
				ints, err := intArgs(args[1:], "bin", "index")
				if err != nil {
					return err
				}
				return s.DeleteLevel(ints[0], ints[1])
			}),
		edit("move <file> <bin> <from> <to>", "Move a level",
			cobra.ExactArgs(4), func(s *app.Session, args []string) error {
				ints, err := intArgs(args[1:], "bin", "from", "to")
				if err != nil {
					return err
				}
				return s.MoveLevel(ints[0], ints[1], ints[2])
			}),
		edit("line <file> <bin> <level> <line> <text>", "Replace one property line of a level",
			cobra.ExactArgs(5), func(s *app.Session, args []string) error {
				ints, err := intArgs(args[1:4], "bin", "level", "line")
				if err != nil {
					return err
				}
				return s.UpdateLine(ints[0], ints[1], ints[2], args[4])
			}),
		edit("header <file> <bin> <line> <text>", "Replace one property line of a bin header",
			cobra.ExactArgs(4), func(s *app.Session, args []string) error {
				ints, err := intArgs(args[1:3], "bin", "line")
				if err != nil {
					return err
				}
				return s.UpdateHeaderLine(ints[0], ints[1], args[3])
			}),
		edit("set <file> <node-path> <index> <line>", "Replace a property of any node",
			cobra.ExactArgs(4), func(s *app.Session, args []string) error {
				index, err := intArg(args[2], "index")
				if err != nil {
					return err
				}
				return s.ReplacePropertyLine(args[1], index, args[3])
			}),
		offset,
	)
	return cmd
}

// runEdit opens the file, applies one edit and saves it unless dryRun is
// set. Edits that change nothing leave the file alone.
func (c *cli) runEdit(cmd *cobra.Command, args []string, dryRun bool, apply func(*app.Session, []string) error) error {
	s, img, err := c.openFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := apply(s, args); err != nil {
		return err
	}
	if !s.IsDirty() {
		c.printf("no change\n")
		return nil
	}

	descs, cursor := s.History()
	desc := descs[cursor-1]

	if dryRun {
		results, err := s.Diff()
		if err != nil {
			return err
		}
		c.printf("%s (not saved)\n\n", desc)
		fmt.Fprint(c.out, c.theme.Render(diff.BuildDiffLines(results, false), c.color))
		return nil
	}

	if err := s.Save(cmd.Context()); err != nil {
		return err
	}
	c.logger.Info("edit saved", "file", img.Path, "edit", desc, "session", img.SessionID)
	c.printf("%s\n", desc)
	return nil
}

func intArg(s, name string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, s)
	}
	return v, nil
}

func intArgs(args []string, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := intArg(args[i], name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
