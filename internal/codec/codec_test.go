package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pstuifzand/dtsedit/internal/model"
)

func TestEncodeGPUFreqAsHex(t *testing.T) {
	c := New()
	require.Equal(t, "qcom,gpu-freq = <0x1dcd6500>;", c.Encode("qcom,gpu-freq", 500000000))
}

func TestEncodeIsNameDriven(t *testing.T) {
	c := New()

	assert.Equal(t, "qcom,bus-max = <0x0b>;", c.Encode("qcom,bus-max", 11))
	assert.Equal(t, "qcom,throttle-count = <11>;", c.Encode("qcom,throttle-count", 11))
	assert.Equal(t, "vendor,idle-level = <0x03>;", c.Encode("vendor,idle-level", 3), "suffix rule")

	c = New("qcom,throttle-count")
	assert.Equal(t, "qcom,throttle-count = <0x0b>;", c.Encode("qcom,throttle-count", 11))
}

func TestDecodeKinds(t *testing.T) {
	tests := []struct {
		name string
		line string
		want model.Property
	}{
		{
			name: "hex cell",
			line: "\t\tqcom,gpu-freq = <0x22fce8c0>;",
			want: model.Property{Name: "qcom,gpu-freq", Raw: "<0x22fce8c0>", Kind: model.KindHexCell},
		},
		{
			name: "decimal cell",
			line: "qcom,bus-freq = <12>;",
			want: model.Property{Name: "qcom,bus-freq", Raw: "<12>", Kind: model.KindDecimal},
		},
		{
			name: "string",
			line: `compatible = "qcom,gpu-pwrlevels";`,
			want: model.Property{Name: "compatible", Raw: `"qcom,gpu-pwrlevels"`, Kind: model.KindString},
		},
		{
			name: "string with separators inside",
			line: `label = "a=b;c";`,
			want: model.Property{Name: "label", Raw: `"a=b;c"`, Kind: model.KindString},
		},
		{
			name: "bytes",
			line: "local-mac-address = [00 11 22 33 44 55];",
			want: model.Property{Name: "local-mac-address", Raw: "[00 11 22 33 44 55]", Kind: model.KindBytes},
		},
		{
			name: "flag",
			line: "qcom,gpu-quirk-hfi-use-reg;",
			want: model.Property{Name: "qcom,gpu-quirk-hfi-use-reg", Kind: model.KindFlag},
		},
		{
			name: "phandle is opaque",
			line: "clocks = <&gpucc 5 &gcc 12>;",
			want: model.Property{Name: "clocks", Raw: "<&gpucc 5 &gcc 12>", Kind: model.KindOpaque},
		},
		{
			name: "string list",
			line: `compatible = "qcom,adreno-650.2", "qcom,kgsl-3d0";`,
			want: model.Property{Name: "compatible", Raw: `"qcom,adreno-650.2", "qcom,kgsl-3d0"`, Kind: model.KindString},
		},
		{
			name: "sized cells are opaque",
			line: "vendor,table = /bits/ 16 <0x10 0x20>;",
			want: model.Property{Name: "vendor,table", Raw: "/bits/ 16 <0x10 0x20>", Kind: model.KindOpaque},
		},
		{
			name: "macro",
			line: "interrupts = GIC_SPI(300, 4);",
			want: model.Property{Name: "interrupts", Raw: "GIC_SPI(300, 4)", Kind: model.KindOpaque},
		},
		{
			name: "unknown name passes through",
			line: "vendor,whatever = <0x01 0x02>;",
			want: model.Property{Name: "vendor,whatever", Raw: "<0x01 0x02>", Kind: model.KindHexCell},
		},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Decode(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"missing semicolon", "qcom,gpu-freq = <0x1>"},
		{"unterminated cells", "qcom,gpu-freq = <0x1;"},
		{"stray closing bracket", "qcom,gpu-freq = 0x1>;"},
		{"bad hex literal", "qcom,gpu-freq = <0xZZ>;"},
		{"empty hex literal", "qcom,gpu-freq = <0x>;"},
		{"unterminated string", `model = "Kona;`},
		{"empty value", "qcom,level = ;"},
		{"empty statement", ";"},
		{"missing comma", "qcom,gpu-freq = <0x1> <0x2>;"},
		{"dangling comma", `compatible = "a", ;`},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.line)
			require.ErrorIs(t, err, ErrParsing)
		})
	}
}

func TestCodecIdempotence(t *testing.T) {
	c := New()
	pairs := []struct {
		name  string
		value uint64
	}{
		{"qcom,gpu-freq", 587000000},
		{"qcom,gpu-freq", 0},
		{"qcom,level", 384},
		{"reg", 3},
		{"qcom,thermal-limit", 95},
	}

	for _, p := range pairs {
		line := c.Encode(p.name, p.value)

		prop, err := c.Decode(line)
		require.NoError(t, err)
		got, err := Uint(prop)
		require.NoError(t, err)
		assert.Equal(t, p.value, got, "decode(encode(%s, %d))", p.name, p.value)

		assert.Equal(t, line, c.Format(prop), "encode(decode(%q))", line)
		assert.Equal(t, line, c.Encode(prop.Name, got))
	}
}

func TestFormatNonCanonical(t *testing.T) {
	c := New()
	prop, err := c.Decode("qcom,gpu-freq = <587000000>;")
	require.NoError(t, err)
	assert.Equal(t, "qcom,gpu-freq = <0x22fce8c0>;", c.Format(prop))

	prop, err = c.Decode(`compatible = "qcom,adreno-650.2";`)
	require.NoError(t, err)
	assert.Equal(t, `compatible = "qcom,adreno-650.2";`, c.Format(prop))
}

func TestCellsAndStrings(t *testing.T) {
	cells, err := Cells(model.Property{Name: "reg", Raw: "<0x3d00000 0x40000>"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x3d00000, 0x40000}, cells)

	_, err = Uint(model.Property{Name: "reg", Raw: "<0x3d00000 0x40000>"})
	require.ErrorIs(t, err, ErrParsing)

	assert.Equal(t, []string{"qcom,adreno-650.2", "qcom,adreno"},
		Strings(model.Property{Raw: `"qcom,adreno-650.2", "qcom,adreno"`}))

	assert.Equal(t, `compatible = "a", "b";`, EncodeString("compatible", "a", "b"))
}

func TestFrequencyConversions(t *testing.T) {
	f := Frequency(587000000)
	assert.Equal(t, 587.0, f.MHz())
	assert.Equal(t, 0.587, f.GHz())
	assert.Equal(t, "587 MHz", f.String())

	for mhz := 100; mhz <= 1200; mhz += 7 {
		hz := Frequency(mhz) * MHz
		assert.Equal(t, hz, FromMHz(hz.MHz()))
		assert.Equal(t, hz, FromGHz(hz.GHz()))
	}
}

func TestLevelLabel(t *testing.T) {
	table := LevelMap{384: "TURBO", 256: "NOM"}

	assert.Equal(t, "TURBO", LevelLabel(384, table))
	assert.Equal(t, "320", LevelLabel(320, table))
	assert.Equal(t, "320", LevelLabel(320, nil))
}
