// Package dtstest provides device tree fixtures and a synthetic table
// generator for tests and benchmarks.
package dtstest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/dts"
	"github.com/pstuifzand/dtsedit/internal/model"
)

// SingleBin is a kona-style GPU node with one table of three levels
const SingleBin = `/dts-v1/;

/ {
	model = "Qualcomm Technologies, Inc. kona v2.1";
	compatible = "qcom,kona-mtp", "qcom,kona";

	soc {
		gpu: qcom,kgsl-3d0@3d00000 {
			compatible = "qcom,adreno-650.2", "qcom,kgsl-3d0";
			reg = <0x3d00000 0x40000>;
			qcom,initial-pwrlevel = <0x01>;

			qcom,gpu-pwrlevels {
				#address-cells = <0x01>;
				#size-cells = <0x00>;
				compatible = "qcom,gpu-pwrlevels";

				qcom,gpu-pwrlevel@0 {
					reg = <0x00>;
					qcom,gpu-freq = <0x22fce8c0>;
					qcom,bus-freq = <0x0b>;
					qcom,level = <0x180>;
				};

				qcom,gpu-pwrlevel@1 {
					reg = <0x01>;
					qcom,gpu-freq = <0x1dcd6500>;
					qcom,bus-freq = <0x09>;
					qcom,level = <0x100>;
				};

				qcom,gpu-pwrlevel@2 {
					reg = <0x02>;
					qcom,gpu-freq = <0x122dee40>;
					qcom,bus-freq = <0x05>;
					qcom,level = <0x80>;
				};
			};
		};

		gpu_opp_table: gpu-opp-table {
			compatible = "operating-points-v2";

			opp-587000000 {
				opp-hz = <0x00 0x22fce8c0>;
				opp-microvolt = <0x180>;
			};

			opp-305000000 {
				opp-hz = <0x00 0x122dee40>;
				opp-microvolt = <0x80>;
			};
		};
	};
};
`

// MultiBin is a lahaina-style GPU node with two speed-bins
const MultiBin = `/dts-v1/;

/ {
	model = "Qualcomm Technologies, Inc. Lahaina SoC";
	compatible = "qcom,lahaina";

	soc {
		qcom,kgsl-3d0@3d00000 {
			compatible = "qcom,adreno-660.1", "qcom,kgsl-3d0";

			qcom,gpu-pwrlevel-bins {
				#address-cells = <0x01>;
				#size-cells = <0x00>;
				compatible = "qcom,gpu-pwrlevel-bins";

				qcom,gpu-pwrlevels-0 {
					#address-cells = <0x01>;
					#size-cells = <0x00>;
					qcom,speed-bin = <0x00>;
					qcom,initial-pwrlevel = <0x01>;
					qcom,ca-target-pwrlevel = <0x00>;
					qcom,min-pwrlevel = <0x02>;

					qcom,gpu-pwrlevel@0 {
						reg = <0x00>;
						qcom,gpu-freq = <0x29b92700>;
						qcom,bus-freq = <0x0b>;
						qcom,level = <0x180>;
					};

					qcom,gpu-pwrlevel@1 {
						reg = <0x01>;
						qcom,gpu-freq = <0x22fce8c0>;
						qcom,bus-freq = <0x09>;
						qcom,level = <0x100>;
					};

					qcom,gpu-pwrlevel@2 {
						reg = <0x02>;
						qcom,gpu-freq = <0x122dee40>;
						qcom,bus-freq = <0x05>;
						qcom,level = <0x40>;
					};
				};

				qcom,gpu-pwrlevels-1 {
					#address-cells = <0x01>;
					#size-cells = <0x00>;
					qcom,speed-bin = <0x01>;
					qcom,initial-pwrlevel = <0x00>;

					qcom,gpu-pwrlevel@0 {
						reg = <0x00>;
						qcom,gpu-freq = <0x22fce8c0>;
						qcom,level = <0x100>;
					};

					qcom,gpu-pwrlevel@1 {
						reg = <0x01>;
						qcom,gpu-freq = <0x122dee40>;
						qcom,level = <0x40>;
					};
				};
			};
		};
	};
};
`

// Parse parses text and fails the test on error
func Parse(t testing.TB, text string) *model.Tree {
	t.Helper()
	tree, err := dts.Parse(text)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return tree
}

// Generate builds a multi-bin GPU tree with the given number of bins and
// levels per bin. Frequencies step down from 900 MHz.
func Generate(bins, levels int) *model.Tree {
	c := codec.New()
	tree := model.NewTree()
	root := tree.Root()
	tree.Node(root).Layout = append(tree.Node(root).Layout, model.Entry{Kind: model.EntryDirective, Text: "/dts-v1/;"})

	slash := tree.AddChild(root, "/")
	tree.AddProperty(slash, model.Property{Name: "model", Raw: `"Generated GPU table"`, Kind: model.KindString})
	gpu := tree.AddChild(slash, "qcom,kgsl-3d0@3d00000")
	tree.AddProperty(gpu, model.Property{Name: "compatible", Raw: `"qcom,adreno-650.2", "qcom,kgsl-3d0"`, Kind: model.KindString})
	holder := tree.AddChild(gpu, "qcom,gpu-pwrlevel-bins")

	for b := 0; b < bins; b++ {
		bin := tree.AddChild(holder, fmt.Sprintf("%s-%d", model.DefaultBinPattern, b))
		tree.AddProperty(bin, c.Property("qcom,speed-bin", uint64(b)))
		tree.AddProperty(bin, c.Property("qcom,initial-pwrlevel", 0))
		for l := 0; l < levels; l++ {
			lvl := tree.AddChild(bin, fmt.Sprintf("%s@%d", model.DefaultLevelPattern, l))
			freq := max(900-l*25-b*10, 50)
			level := max(416-l*16, 16)
			tree.AddProperty(lvl, c.Property("reg", uint64(l)))
			tree.AddProperty(lvl, c.Property("qcom,gpu-freq", uint64(codec.Frequency(freq)*codec.MHz)))
			tree.AddProperty(lvl, c.Property("qcom,bus-freq", uint64(levels-l)))
			tree.AddProperty(lvl, c.Property("qcom,level", uint64(level)))
		}
	}
	return tree
}

// GenerateText is Generate serialized to DTS text
func GenerateText(bins, levels int) string {
	return dts.Serialize(Generate(bins, levels))
}

// Lines splits serialized text into lines without the trailing newline
func Lines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
