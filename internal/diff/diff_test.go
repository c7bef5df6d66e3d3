package diff

import (
	"fmt"
	"strings"
	"testing"

	godiff "github.com/sourcegraph/go-diff/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/dts"
	"github.com/pstuifzand/dtsedit/internal/dtstest"
	"github.com/pstuifzand/dtsedit/internal/model"
	"github.com/pstuifzand/dtsedit/internal/project"
)

var lahainaChip = model.ChipDefinition{
	Name:           "lahaina",
	Models:         []string{"Qualcomm Technologies, Inc. Lahaina SoC"},
	MaxTableLevels: 4,
	MinLevelOffset: 1,
	StrategyType:   model.StrategyMultiBin,
}

func openMultiBin(t *testing.T) *project.Document {
	t.Helper()
	doc, err := project.Project(dtstest.Parse(t, dtstest.MultiBin), lahainaChip, codec.New())
	require.NoError(t, err)
	return doc
}

func TestDiffOfIdenticalSnapshots(t *testing.T) {
	bins := openMultiBin(t).Bins()

	results := Bins(bins, bins, Options{IncludeUnchanged: true})
	require.Len(t, results, 3, "two bins plus the unchanged header lines")
	for _, r := range results {
		for _, c := range r.Changes {
			assert.Equal(t, Unchanged, c.Type, "bin %d level %d", r.BinID, c.LevelIndex)
		}
	}
	assert.Len(t, results[0].Changes, 3)
	assert.Len(t, results[1].Changes, 2)

	filtered := Bins(bins, bins, Options{})
	require.Len(t, filtered, 2, "no general bucket without changes")
	for _, r := range filtered {
		assert.Empty(t, r.Changes)
	}
	assert.Equal(t, 0, Summarize(filtered).Changed())
}

func TestDiffSingleAddedLevel(t *testing.T) {
	for _, mode := range []Alignment{AlignAuto, AlignIdentity, AlignLCS, AlignPosition} {
		t.Run(mode.String(), func(t *testing.T) {
			doc := openMultiBin(t)
			before := doc.Bins()
			require.NoError(t, doc.AddLevelBottom(1))

			results := Bins(before, doc.Bins(), Options{Alignment: mode})
			require.Len(t, results, 2)
			assert.Empty(t, results[0].Changes)

			changes := results[1].Changes
			require.Len(t, changes, 1)
			assert.Equal(t, Added, changes[0].Type)
			assert.Equal(t, 2, changes[0].LevelIndex)
			assert.Equal(t, -1, changes[0].OldIndex)
			assert.Equal(t, "305 MHz, level 64", changes[0].NewDescription)
			assert.Empty(t, changes[0].OldDescription)
		})
	}
}

func TestDiffIsAntisymmetric(t *testing.T) {
	doc := openMultiBin(t)
	a := doc.Bins()
	require.NoError(t, doc.UpdateLine(0, 1, 0, "qcom,gpu-freq = <0x2faf0800>;"))
	require.NoError(t, doc.DeleteLevel(0, 2))
	require.NoError(t, doc.MoveLevel(1, 0, 1))
	b := doc.Bins()

	for _, mode := range []Alignment{AlignLCS, AlignIdentity, AlignPosition} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := Options{Alignment: mode, IncludeUnchanged: true}
			ab := Bins(a, b, opts)
			ba := Bins(b, a, opts)
			require.Len(t, ba, len(ab))

			for i := range ab {
				if ab[i].IsGeneral() {
					continue
				}
				forward := pairsOf(ab[i].Changes)
				backward := pairsOf(ba[i].Changes)
				require.Len(t, backward, len(forward))
				for key, c := range forward {
					swapped := fmt.Sprintf("%d>%d", c.LevelIndex, c.OldIndex)
					if c.Type == Added || c.Type == Removed {
						continue
					}
					r, ok := backward[swapped]
					require.True(t, ok, "pair %s missing in reverse", key)
					assert.Equal(t, c.Type, r.Type)
					assert.Equal(t, c.OldDescription, r.NewDescription)
					assert.Equal(t, c.NewDescription, r.OldDescription)
				}
			}

			fs, bs := Summarize(ab), Summarize(ba)
			assert.Equal(t, fs.Added, bs.Removed)
			assert.Equal(t, fs.Removed, bs.Added)
			assert.Equal(t, fs.Modified, bs.Modified)
		})
	}
}

// pairsOf keys changes by old>new index
func pairsOf(changes []Node) map[string]Node {
	out := map[string]Node{}
	for _, c := range changes {
		old, cur := c.OldIndex, c.LevelIndex
		switch c.Type {
		case Added:
			old = -1
		case Removed:
			cur = -1
		}
		out[fmt.Sprintf("%d>%d", old, cur)] = c
	}
	return out
}

func TestDiffModifiedDescriptions(t *testing.T) {
	doc := openMultiBin(t)
	before := doc.Bins()
	require.NoError(t, doc.UpdateLine(0, 1, 0, "qcom,gpu-freq = <0x2faf0800>;"))

	results := Bins(before, doc.Bins(), Options{Levels: codec.LevelMap{0x100: "TURBO"}})
	require.Len(t, results[0].Changes, 1)
	c := results[0].Changes[0]
	assert.Equal(t, Modified, c.Type)
	assert.Equal(t, 1, c.LevelIndex)
	assert.Equal(t, 1, c.OldIndex)
	assert.Equal(t, "587 MHz, level TURBO (qcom,gpu-freq = <0x22fce8c0>;)", c.OldDescription)
	assert.Equal(t, "800 MHz, level TURBO (qcom,gpu-freq = <0x2faf0800>;)", c.NewDescription)
}

func TestDiffReportsHeaderChanges(t *testing.T) {
	doc := openMultiBin(t)
	before := doc.Bins()
	require.NoError(t, doc.DeleteLevel(0, 0))

	results := Bins(before, doc.Bins(), Options{})
	require.Len(t, results, 3)
	general := results[2]
	require.True(t, general.IsGeneral())
	assert.Equal(t, GeneralBin, general.BinIndex)
	assert.Equal(t, general.Changes, general.GUIRelevant())
	assert.Empty(t, general.RawOnly())

	var descs []string
	for _, c := range general.Changes {
		assert.Equal(t, 0, c.LevelIndex)
		assert.Equal(t, Modified, c.Type)
		descs = append(descs, c.NewDescription)
	}
	assert.Equal(t, []string{
		"bin 0: qcom,initial-pwrlevel = <0x00>;",
		"bin 0: qcom,min-pwrlevel = <0x01>;",
	}, descs)
}

func TestDiffRemovedBin(t *testing.T) {
	bins := openMultiBin(t).Bins()

	results := Bins(bins, bins[:1], Options{})
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[1].BinID)
	assert.Equal(t, 1, results[1].BinIndex, "removed bins keep their baseline index")
	require.Len(t, results[1].Changes, 2)
	for _, c := range results[1].Changes {
		assert.Equal(t, Removed, c.Type)
	}
	for _, c := range results[2].Changes {
		assert.Equal(t, Removed, c.Type)
		assert.True(t, strings.HasPrefix(c.OldDescription, "bin 1: "))
	}
}

func TestDiffIsDeterministic(t *testing.T) {
	doc := openMultiBin(t)
	before := doc.Bins()
	require.NoError(t, doc.DuplicateLevel(0, 2, 0))
	require.NoError(t, doc.ApplyOffset(1, "qcom,gpu-freq", -int64(codec.MHz)))
	after := doc.Bins()

	first := Bins(before, after, Options{IncludeUnchanged: true})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Bins(before, after, Options{IncludeUnchanged: true}))
	}
}

func TestTreesSplitsGeneralBucket(t *testing.T) {
	baseline := dtstest.Parse(t, dtstest.MultiBin)
	current := baseline.Clone()

	slash, ok := current.Find("/")
	require.True(t, ok)
	current.SetProperty(slash, model.Property{Name: "model", Raw: `"Custom board"`, Kind: model.KindString})

	doc, err := project.Project(current, lahainaChip, codec.New())
	require.NoError(t, err)
	require.NoError(t, doc.UpdateLine(1, 0, 0, "qcom,gpu-freq = <0x2faf0800>;"))

	results, err := Trees(baseline, doc.Tree(), lahainaChip, nil, Options{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Empty(t, results[0].Changes)
	require.Len(t, results[1].Changes, 1)
	assert.Equal(t, Modified, results[1].Changes[0].Type)

	general := results[2]
	require.True(t, general.IsGeneral())
	gui := general.GUIRelevant()
	require.Len(t, gui, 1)
	assert.Equal(t, -1, gui[0].LevelIndex)
	assert.Equal(t, `/: model = "Qualcomm Technologies, Inc. Lahaina SoC";`, gui[0].OldDescription)
	assert.Equal(t, `/: model = "Custom board";`, gui[0].NewDescription)

	raw := general.RawOnly()
	require.Len(t, raw, 2)
	assert.Equal(t, 4, raw[0].LevelIndex)
	assert.Equal(t, "\tmodel = \"Custom board\";", raw[0].NewDescription)
	for _, c := range raw {
		assert.Equal(t, Modified, c.Type)
		assert.Positive(t, c.LevelIndex)
	}

	lines := BuildDiffLines(results, false)
	for _, l := range lines {
		assert.NotContains(t, l.Content, "line ")
	}
	verbose := BuildDiffLines(results, true)
	assert.Greater(t, len(verbose), len(lines))
}

func TestTreesOfSameTreeIsEmpty(t *testing.T) {
	tree := dtstest.Parse(t, dtstest.SingleBin)
	chip := model.ChipDefinition{Name: "kona", MaxTableLevels: 11, StrategyType: model.StrategySingleBin}

	results, err := Trees(tree, tree, chip, codec.New(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Changes)
	assert.Empty(t, BuildDiffLines(results, true))
}

func TestTreesUnmatched(t *testing.T) {
	tree := dtstest.Parse(t, "/ {\n\tmodel = \"empty\";\n};\n")
	_, err := Trees(tree, tree, lahainaChip, nil, Options{})
	assert.ErrorIs(t, err, project.ErrUnmatchedPattern)
}

func TestAlignKeysCanonicalOrder(t *testing.T) {
	a := []string{"x", "a", "b", "c", "y"}
	b := []string{"a", "q", "c", "z", "w"}

	forward := alignKeys(a, b)
	backward := alignKeys(b, a)
	require.Len(t, backward, len(forward))
	for i := range forward {
		assert.Equal(t, pair{forward[i].new, forward[i].old}, backward[i])
	}

	matched := 0
	for _, p := range forward {
		if p.old >= 0 && p.new >= 0 && a[p.old] == b[p.new] {
			matched++
		}
	}
	assert.Equal(t, 2, matched, "a and c anchor")
}

func TestParseAlignment(t *testing.T) {
	for in, want := range map[string]Alignment{
		"":         AlignAuto,
		"Identity": AlignIdentity,
		"position": AlignPosition,
		" lcs ":    AlignLCS,
	} {
		got, err := ParseAlignment(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAlignment("fuzzy")
	assert.Error(t, err)
}

func TestUnified(t *testing.T) {
	out, err := Unified("old.dts", "new.dts", "a\nb\nc\n", "a\nB\nc\n")
	require.NoError(t, err)
	assert.Equal(t, "--- old.dts\n+++ new.dts\n@@ -1,3 +1,3 @@\n a\n-b\n+B\n c\n", out)

	fd, err := godiff.ParseFileDiff([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "old.dts", fd.OrigName)
	require.Len(t, fd.Hunks, 1)

	same, err := Unified("a", "b", "x\n", "x\n")
	require.NoError(t, err)
	assert.Empty(t, same)
}

func TestHunksAreSplitByContext(t *testing.T) {
	var old []string
	for i := 1; i <= 30; i++ {
		old = append(old, fmt.Sprintf("line %d", i))
	}
	edit := func(indexes ...int) string {
		cur := append([]string(nil), old...)
		for _, i := range indexes {
			cur[i] = "changed"
		}
		return strings.Join(cur, "\n") + "\n"
	}
	oldText := strings.Join(old, "\n") + "\n"

	far := Hunks(oldText, edit(1, 19))
	require.Len(t, far, 2)
	assert.Equal(t, int32(1), far[0].OrigStartLine)
	assert.Equal(t, int32(5), far[0].OrigLines)
	assert.Equal(t, int32(17), far[1].OrigStartLine)
	assert.Equal(t, int32(7), far[1].OrigLines)
	assert.Equal(t, int32(17), far[1].NewStartLine)

	near := Hunks(oldText, edit(1, 5))
	require.Len(t, near, 1)
	assert.Equal(t, int32(9), near[0].OrigLines)

	added := Hunks("a\n", "a\nb\n")
	require.Len(t, added, 1)
	assert.Equal(t, int32(1), added[0].OrigStartLine)
	assert.Equal(t, int32(1), added[0].OrigLines)
	assert.Equal(t, int32(2), added[0].NewLines)
	assert.Equal(t, " a\n+b\n", string(added[0].Body))
}

func TestUnifiedOfSerializedEdit(t *testing.T) {
	doc := openMultiBin(t)
	before := dts.Serialize(doc.Tree())
	require.NoError(t, doc.MoveLevel(1, 0, 1))

	out, err := Unified("a/lahaina.dts", "b/lahaina.dts", before, dts.Serialize(doc.Tree()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "--- a/lahaina.dts\n+++ b/lahaina.dts\n@@ -"))

	var removed, added int
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++"):
		case strings.HasPrefix(line, "-"):
			removed++
			assert.Contains(t, line, "\t\t\t\t\t\tqcom,")
		case strings.HasPrefix(line, "+"):
			added++
			assert.Contains(t, line, "\t\t\t\t\t\tqcom,")
		}
	}
	assert.Equal(t, removed, added)
	assert.Positive(t, added)
}

func TestHunksWithRepeatedLines(t *testing.T) {
	oldText := "a {\n\tx = <1>;\n};\nb {\n\ty = <2>;\n};\n"
	newText := "a {\n\tx = <1>;\n};\nb {\n\ty = <3>;\n};\n"

	hunks := Hunks(oldText, newText)
	require.Len(t, hunks, 1)
	assert.Equal(t, int32(2), hunks[0].OrigStartLine)
	assert.Equal(t, int32(5), hunks[0].OrigLines)
	assert.Equal(t, int32(5), hunks[0].NewLines)
	assert.Equal(t, " \tx = <1>;\n };\n b {\n-\ty = <2>;\n+\ty = <3>;\n };\n", string(hunks[0].Body))

	removed := Hunks("a\nb\nc\n", "a\nc\n")
	require.Len(t, removed, 1)
	assert.Equal(t, " a\n-b\n c\n", string(removed[0].Body))
	assert.Equal(t, int32(3), removed[0].OrigLines)
	assert.Equal(t, int32(2), removed[0].NewLines)

	fromEmpty := Hunks("", "a\n")
	require.Len(t, fromEmpty, 1)
	assert.Equal(t, int32(0), fromEmpty[0].OrigStartLine)
	assert.Equal(t, int32(1), fromEmpty[0].NewStartLine)
	assert.Equal(t, "+a\n", string(fromEmpty[0].Body))

	assert.Empty(t, Hunks("same\n", "same\n"))
}
