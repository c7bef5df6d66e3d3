// Package codec decodes and encodes single device-tree property statements.
//
// Numeric rendering is decided by the property name only: names in the
// hex-preferring table are written as <0x..> cells, everything else as
// plain decimal. The table is built once by New and passed to callers.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pstuifzand/dtsedit/internal/model"
)

// ErrParsing is returned for malformed statements and values
var ErrParsing = errors.New("parse error")

// DefaultHexProperties are rendered as hex cells
var DefaultHexProperties = []string{
	"reg",
	"qcom,gpu-freq",
	"qcom,bus-freq",
	"qcom,bus-min",
	"qcom,bus-max",
	"qcom,level",
	"qcom,cx-level",
	"qcom,acd-level",
	"qcom,speed-bin",
	"qcom,initial-pwrlevel",
	"qcom,ca-target-pwrlevel",
	"qcom,min-pwrlevel",
	"qcom,max-pwrlevel",
	"opp-hz",
	"opp-level",
	"opp-microvolt",
}

var hexSuffixes = []string{"-freq", "-level", "-hz", "-pwrlevel"}

// Codec holds the name classification table
type Codec struct {
	hexNames map[string]bool
}

// New creates a codec using the default hex table plus extra names
func New(extraHex ...string) *Codec {
	c := &Codec{hexNames: make(map[string]bool, len(DefaultHexProperties)+len(extraHex))}
	for _, name := range DefaultHexProperties {
		c.hexNames[name] = true
	}
	for _, name := range extraHex {
		if name = strings.TrimSpace(name); name != "" {
			c.hexNames[name] = true
		}
	}
	return c
}

// PrefersHex reports whether numeric values of name render as hex cells
func (c *Codec) PrefersHex(name string) bool {
	if c.hexNames[name] {
		return true
	}
	for _, suffix := range hexSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Decode parses one property statement
func (c *Codec) Decode(line string) (model.Property, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasSuffix(trimmed, ";") {
		return model.Property{}, fmt.Errorf("%w: missing ';' in %q", ErrParsing, line)
	}
	body := strings.TrimSpace(trimmed[:len(trimmed)-1])

	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		if body == "" || strings.ContainsAny(body, " \t\"<>[]{}") {
			return model.Property{}, fmt.Errorf("%w: malformed property %q", ErrParsing, line)
		}
		return model.Property{Name: body, Kind: model.KindFlag}, nil
	}

	name := strings.TrimSpace(body[:eq])
	if name == "" || strings.ContainsAny(name, " \t") {
		return model.Property{}, fmt.Errorf("%w: malformed property name in %q", ErrParsing, line)
	}
	raw := strings.TrimSpace(body[eq+1:])
	if raw == "" {
		return model.Property{}, fmt.Errorf("%w: empty value in %q", ErrParsing, line)
	}
	kind, err := Classify(raw)
	if err != nil {
		return model.Property{}, fmt.Errorf("%s: %w", name, err)
	}
	return model.Property{Name: name, Raw: raw, Kind: kind}, nil
}

// Encode renders a single-cell numeric property
func (c *Codec) Encode(name string, value uint64) string {
	return c.EncodeCells(name, value)
}

// EncodeCells renders a numeric property with one or more cells
func (c *Codec) EncodeCells(name string, values ...uint64) string {
	return name + " = " + c.formatCells(name, values) + ";"
}

// Property builds a numeric property value using the name-driven style
func (c *Codec) Property(name string, values ...uint64) model.Property {
	kind := model.KindDecimal
	if c.PrefersHex(name) {
		kind = model.KindHexCell
	}
	return model.Property{Name: name, Raw: c.formatCells(name, values), Kind: kind}
}

func (c *Codec) formatCells(name string, values []uint64) string {
	hex := c.PrefersHex(name)
	cells := make([]string, len(values))
	for i, v := range values {
		if hex {
			cells[i] = fmt.Sprintf("0x%02x", v)
		} else {
			cells[i] = strconv.FormatUint(v, 10)
		}
	}
	return "<" + strings.Join(cells, " ") + ">"
}

// EncodeString renders a string or string-list property
func EncodeString(name string, values ...string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return name + " = " + strings.Join(quoted, ", ") + ";"
}

// Format renders p canonically: numeric cells are re-encoded through the
// name table, every other kind is written verbatim
func (c *Codec) Format(p model.Property) string {
	if p.Kind == model.KindHexCell || p.Kind == model.KindDecimal {
		if cells, err := Cells(p); err == nil && len(cells) > 0 {
			return c.EncodeCells(p.Name, cells...)
		}
	}
	return p.Line()
}

// Classify infers the kind of a raw payload
func Classify(raw string) (model.Kind, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.KindFlag, nil
	}
	parts, err := splitList(raw)
	if err != nil {
		return 0, err
	}
	if len(parts) > 1 {
		for _, part := range parts {
			if part[0] != '"' {
				return model.KindOpaque, nil
			}
		}
		return model.KindString, nil
	}

	switch {
	case raw[0] == '<':
		return classifyCells(raw)
	case raw[0] == '"':
		return model.KindString, nil
	case raw[0] == '[':
		return model.KindBytes, nil
	case isDecimal(raw):
		return model.KindDecimal, nil
	}
	return model.KindOpaque, nil
}

// splitList splits a value into its comma separated components and rejects
// anything dtc would not accept between them
func splitList(raw string) ([]string, error) {
	var parts []string
	i := 0
	for {
		i = skipSpaces(raw, i)
		if i >= len(raw) {
			return nil, fmt.Errorf("%w: empty element in %q", ErrParsing, raw)
		}
		start := i
		if strings.HasPrefix(raw[i:], "/bits/") {
			i = skipSpaces(raw, i+len("/bits/"))
			for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
				i++
			}
			i = skipSpaces(raw, i)
			if i >= len(raw) || raw[i] != '<' {
				return nil, fmt.Errorf("%w: /bits/ without cell list in %q", ErrParsing, raw)
			}
		}

		switch raw[i] {
		case '"':
			end := closingQuote(raw, i)
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated string %q", ErrParsing, raw)
			}
			i = end + 1
		case '<':
			end := strings.IndexByte(raw[i:], '>')
			if end < 0 || strings.IndexByte(raw[i+1:i+end], '<') >= 0 {
				return nil, fmt.Errorf("%w: malformed cell list %q", ErrParsing, raw)
			}
			i += end + 1
		case '[':
			end := strings.IndexByte(raw[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated byte array %q", ErrParsing, raw)
			}
			i += end + 1
		default:
			depth := 0
			for ; i < len(raw); i++ {
				c := raw[i]
				if depth == 0 && (c == ',' || isSpace(c)) {
					break
				}
				switch c {
				case '(':
					depth++
				case ')':
					depth--
				case '<', '>', '[', ']', '"':
					return nil, fmt.Errorf("%w: unexpected %q in %q", ErrParsing, c, raw)
				}
			}
		}
		if i == start {
			return nil, fmt.Errorf("%w: empty element in %q", ErrParsing, raw)
		}
		parts = append(parts, raw[start:i])

		i = skipSpaces(raw, i)
		if i >= len(raw) {
			return parts, nil
		}
		if raw[i] != ',' {
			return nil, fmt.Errorf("%w: expected ',' before %q", ErrParsing, raw[i:])
		}
		i++
	}
}

func closingQuote(s string, open int) int {
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func skipSpaces(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func classifyCells(raw string) (model.Kind, error) {
	fields := strings.Fields(raw[1 : len(raw)-1])
	if len(fields) == 0 {
		return model.KindOpaque, nil
	}
	hex, dec := 0, 0
	for _, f := range fields {
		switch {
		case isHexLiteral(f):
			if _, err := strconv.ParseUint(f[2:], 16, 64); err != nil {
				return 0, fmt.Errorf("%w: malformed hex literal %q", ErrParsing, f)
			}
			hex++
		case isDecimal(f):
			dec++
		}
	}
	switch {
	case hex+dec < len(fields):
		return model.KindOpaque, nil
	case hex > 0:
		return model.KindHexCell, nil
	default:
		return model.KindDecimal, nil
	}
}

// Cells returns the numeric cells of a hex-cell or decimal property
func Cells(p model.Property) ([]uint64, error) {
	raw := strings.TrimSpace(p.Raw)
	if strings.HasPrefix(raw, "<") && strings.HasSuffix(raw, ">") {
		raw = raw[1 : len(raw)-1]
	}
	fields := strings.Fields(raw)
	values := make([]uint64, 0, len(fields))
	for _, f := range fields {
		var (
			v   uint64
			err error
		)
		if isHexLiteral(f) {
			v, err = strconv.ParseUint(f[2:], 16, 64)
		} else {
			v, err = strconv.ParseUint(f, 10, 64)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not numeric: %q", ErrParsing, p.Name, f)
		}
		values = append(values, v)
	}
	return values, nil
}

// Uint returns the value of a single-cell numeric property
func Uint(p model.Property) (uint64, error) {
	cells, err := Cells(p)
	if err != nil {
		return 0, err
	}
	if len(cells) != 1 {
		return 0, fmt.Errorf("%w: %s has %d cells, want 1", ErrParsing, p.Name, len(cells))
	}
	return cells[0], nil
}

// Strings returns the values of a string-list property
func Strings(p model.Property) []string {
	var out []string
	raw := p.Raw
	for {
		start := strings.IndexByte(raw, '"')
		if start < 0 {
			return out
		}
		end := start + 1
		for end < len(raw) && raw[end] != '"' {
			if raw[end] == '\\' {
				end++
			}
			end++
		}
		if end >= len(raw) {
			return out
		}
		if s, err := strconv.Unquote(raw[start : end+1]); err == nil {
			out = append(out, s)
		} else {
			out = append(out, raw[start+1:end])
		}
		raw = raw[end+1:]
	}
}

func isHexLiteral(s string) bool {
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
