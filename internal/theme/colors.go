package theme

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const reset = "\x1b[0m"

// Color is a terminal foreground color. The zero value is the terminal
// default and paints nothing.
type Color struct {
	rgb colorful.Color
	set bool
}

// ColorDefault leaves text in the terminal's own color
var ColorDefault = Color{}

// IsDefault reports whether c leaves the terminal color alone
func (c Color) IsDefault() bool {
	return !c.set
}

// Hex returns the color as #rrggbb, or "" for the default color
func (c Color) Hex() string {
	if !c.set {
		return ""
	}
	return c.rgb.Hex()
}

// Escape returns the 24-bit ANSI foreground sequence for c
func (c Color) Escape() string {
	if !c.set {
		return ""
	}
	r, g, b := c.rgb.RGB255()
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
}

// Paint wraps text in the escape sequences for c
func (c Color) Paint(text string) string {
	if !c.set || text == "" {
		return text
	}
	return c.Escape() + text + reset
}

// HexToColor converts a hex color string (#RRGGBB or #RGB) to a Color
func HexToColor(hexColor string) Color {
	hexColor = strings.TrimPrefix(hexColor, "#")

	// Handle short form (#RGB)
	if len(hexColor) == 3 {
		hexColor = string(hexColor[0]) + string(hexColor[0]) +
			string(hexColor[1]) + string(hexColor[1]) +
			string(hexColor[2]) + string(hexColor[2])
	}

	if len(hexColor) != 6 {
		return ColorDefault
	}

	c, err := colorful.Hex("#" + hexColor)
	if err != nil {
		return ColorDefault
	}
	return Color{rgb: c, set: true}
}

// RGBToColor converts RGB values to a Color
func RGBToColor(r, g, b int) Color {
	if r < 0 || r > 255 || g < 0 || g > 255 || b < 0 || b > 255 {
		return ColorDefault
	}
	return Color{rgb: colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, set: true}
}

// ParseColorString handles multiple color formats: #RRGGBB, #RGB, or rgb(r,g,b)
func ParseColorString(colorStr string) Color {
	colorStr = strings.TrimSpace(colorStr)

	if strings.HasPrefix(colorStr, "#") {
		return HexToColor(colorStr)
	}

	if strings.HasPrefix(colorStr, "rgb(") && strings.HasSuffix(colorStr, ")") {
		innerStr := strings.TrimSuffix(strings.TrimPrefix(colorStr, "rgb("), ")")
		parts := strings.Split(innerStr, ",")
		if len(parts) != 3 {
			return ColorDefault
		}

		r, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		g, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		b, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))

		if err1 == nil && err2 == nil && err3 == nil {
			return RGBToColor(r, g, b)
		}
	}

	return ColorDefault
}

// Dim blends c towards black, for detail lines under a colored entry
func (c Color) Dim(amount float64) Color {
	if !c.set {
		return c
	}
	return Color{rgb: c.rgb.BlendLab(colorful.Color{}, amount).Clamped(), set: true}
}
