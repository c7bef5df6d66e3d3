package dts

import (
	"strings"

	"github.com/pstuifzand/dtsedit/internal/model"
)

// Serialize writes a tree back to DTS text. Bodies are indented with tabs,
// blocks are closed with "};" and blank lines are kept where the source had
// them, so dtc-formatted input comes back byte for byte.
func Serialize(t *model.Tree) string {
	if t == nil || len(t.Node(t.Root()).Layout) == 0 {
		return ""
	}
	var sb strings.Builder
	writeBody(&sb, t, t.Root(), 0)
	sb.WriteByte('\n')
	return sb.String()
}

// SerializeNode writes a single node block at the given depth
func SerializeNode(t *model.Tree, id model.NodeID, depth int) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("\t", depth))
	writeNode(&sb, t, id, depth)
	return sb.String()
}

// Equal reports whether two trees are structurally equal
func Equal(a, b *model.Tree) bool {
	return a.Equal(b)
}

func writeBody(sb *strings.Builder, t *model.Tree, id model.NodeID, depth int) {
	n := t.Node(id)
	for i, e := range n.Layout {
		switch {
		case depth == 0 && i == 0:
			if e.BlankBefore {
				sb.WriteString("\n\n")
			}
		case e.Inline:
			sb.WriteByte(' ')
		default:
			sb.WriteByte('\n')
			if e.BlankBefore {
				sb.WriteByte('\n')
			}
			sb.WriteString(strings.Repeat("\t", depth))
		}

		switch e.Kind {
		case model.EntryProperty:
			sb.WriteString(n.Properties[e.Index].Line())
		case model.EntryChild:
			writeNode(sb, t, n.Children[e.Index], depth)
		default:
			sb.WriteString(e.Text)
		}
	}
}

func writeNode(sb *strings.Builder, t *model.Tree, id model.NodeID, depth int) {
	n := t.Node(id)
	for _, label := range n.Labels {
		sb.WriteString(label)
		sb.WriteString(": ")
	}
	sb.WriteString(n.Name)
	sb.WriteString(" {")
	writeBody(sb, t, id, depth+1)
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat("\t", depth))
	sb.WriteString("};")
}
