package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree() (*Tree, NodeID, NodeID) {
	tree := NewTree()
	slash := tree.AddChild(tree.Root(), "/")
	tree.AddProperty(slash, Property{Name: "model", Raw: `"kona"`, Kind: KindString})
	table := tree.AddChild(slash, "qcom,gpu-pwrlevels")
	for _, name := range []string{"qcom,gpu-pwrlevel@0", "qcom,gpu-pwrlevel@1"} {
		lvl := tree.AddChild(table, name)
		tree.AddProperty(lvl, Property{Name: "reg", Raw: "<0x00>", Kind: KindHexCell})
	}
	return tree, slash, table
}

func TestPathAndFind(t *testing.T) {
	tree, slash, table := buildTree()

	assert.Equal(t, "", tree.Path(tree.Root()))
	assert.Equal(t, "/", tree.Path(slash))
	assert.Equal(t, "/qcom,gpu-pwrlevels", tree.Path(table))

	id, ok := tree.Find("/qcom,gpu-pwrlevels/qcom,gpu-pwrlevel@1")
	require.True(t, ok)
	assert.Equal(t, "qcom,gpu-pwrlevel@1", tree.Node(id).Name)
	assert.Equal(t, table, tree.Node(id).Parent)

	_, ok = tree.Find("/missing")
	assert.False(t, ok)
}

func TestWalkIsPreOrder(t *testing.T) {
	tree, _, _ := buildTree()

	var names []string
	var depths []int
	tree.Walk(func(id NodeID, depth int) bool {
		names = append(names, tree.Node(id).Name)
		depths = append(depths, depth)
		return true
	})

	assert.Equal(t, []string{"", "/", "qcom,gpu-pwrlevels", "qcom,gpu-pwrlevel@0", "qcom,gpu-pwrlevel@1"}, names)
	assert.Equal(t, []int{0, 1, 2, 3, 3}, depths)
	assert.Equal(t, 5, tree.Len())
}

func TestInsertChildKeepsLayoutIndexes(t *testing.T) {
	tree, _, table := buildTree()

	mid := tree.InsertChild(table, 1, "qcom,gpu-pwrlevel@5")
	n := tree.Node(table)
	require.Len(t, n.Children, 3)
	assert.Equal(t, mid, n.Children[1])

	for i, e := range n.Layout {
		assert.Equal(t, EntryChild, e.Kind)
		assert.Equal(t, i, e.Index)
	}

	require.True(t, tree.RemoveChild(table, mid))
	assert.Len(t, tree.Node(table).Children, 2)
	assert.Equal(t, NoNode, tree.Node(mid).Parent)
	assert.Equal(t, 1, tree.Node(table).Layout[1].Index)
	assert.False(t, tree.RemoveChild(table, mid))
}

func TestArrangeChildrenKeepsSlots(t *testing.T) {
	tree, _, table := buildTree()
	n := tree.Node(table)
	a, b := n.Children[0], n.Children[1]
	n.Layout[0].BlankBefore = false
	n.Layout = append(n.Layout, Entry{Kind: EntryComment, Text: "/* end */"})

	c := tree.NewNode("qcom,gpu-pwrlevel@2")
	assert.Equal(t, NoNode, tree.Node(c).Parent)
	require.True(t, tree.ArrangeChildren(table, []NodeID{a, b}, []NodeID{b, c, a}))

	n = tree.Node(table)
	assert.Equal(t, []NodeID{b, c, a}, n.Children)
	require.Len(t, n.Layout, 4)
	assert.False(t, n.Layout[0].BlankBefore, "slot spacing stays with the slot")
	assert.True(t, n.Layout[2].BlankBefore)
	assert.Equal(t, EntryComment, n.Layout[3].Kind)
	for i := 0; i < 3; i++ {
		assert.Equal(t, i, n.Layout[i].Index)
	}
	assert.Equal(t, table, tree.Node(c).Parent)

	require.True(t, tree.ArrangeChildren(table, []NodeID{b, c, a}, []NodeID{a}))
	n = tree.Node(table)
	assert.Equal(t, []NodeID{a}, n.Children)
	require.Len(t, n.Layout, 2)
	assert.False(t, n.Layout[0].BlankBefore)
	assert.Equal(t, NoNode, tree.Node(b).Parent)
	assert.Equal(t, NoNode, tree.Node(c).Parent)

	assert.False(t, tree.ArrangeChildren(NodeID(99), nil, nil))
}

func TestPropertyEdits(t *testing.T) {
	tree, slash, _ := buildTree()

	tree.SetProperty(slash, Property{Name: "compatible", Raw: `"qcom,kona"`, Kind: KindString})
	n := tree.Node(slash)
	require.Len(t, n.Properties, 2)
	assert.Equal(t, EntryProperty, n.Layout[1].Kind, "new property goes ahead of child blocks")
	assert.Equal(t, EntryChild, n.Layout[2].Kind)

	tree.SetProperty(slash, Property{Name: "model", Raw: `"lahaina"`, Kind: KindString})
	p, ok := n.Property("model")
	require.True(t, ok)
	assert.Equal(t, `"lahaina"`, p.Raw)

	require.True(t, tree.RemoveProperty(slash, 0))
	assert.Equal(t, -1, n.PropertyIndex("model"))
	assert.Equal(t, 0, n.Layout[0].Index)
	assert.False(t, tree.RemoveProperty(slash, 5))
	assert.False(t, tree.ReplaceProperty(slash, 5, Property{}))
}

func TestCloneIsIndependent(t *testing.T) {
	tree, slash, _ := buildTree()
	clone := tree.Clone()
	require.True(t, tree.Equal(clone))

	clone.SetProperty(slash, Property{Name: "model", Raw: `"other"`, Kind: KindString})
	assert.False(t, tree.Equal(clone))

	p, _ := tree.Node(slash).Property("model")
	assert.Equal(t, `"kona"`, p.Raw)
}

func TestPropertyLine(t *testing.T) {
	assert.Equal(t, "status;", Property{Name: "status", Kind: KindFlag}.Line())
	assert.Equal(t, "reg = <0x01>;", Property{Name: "reg", Raw: "<0x01>"}.Line())
}

func TestStrategyText(t *testing.T) {
	var s Strategy
	require.NoError(t, s.UnmarshalText([]byte("multi-bin")))
	assert.Equal(t, StrategyMultiBin, s)
	require.NoError(t, s.UnmarshalText([]byte("single")))
	assert.Equal(t, StrategySingleBin, s)
	assert.Error(t, s.UnmarshalText([]byte("triple")))

	text, err := StrategyMultiBin.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "multi-bin", string(text))
}

func TestScanResultDefinition(t *testing.T) {
	def := ScanResult{RecommendedStrategy: StrategyMultiBin, MaxLevels: 16}.Definition()
	assert.Equal(t, "scanned", def.Name)
	assert.True(t, def.IgnoreVoltTable)
	assert.Equal(t, DefaultBinPattern, def.BinPattern)
	assert.Equal(t, DefaultLevelPattern, def.LevelPattern)
}
