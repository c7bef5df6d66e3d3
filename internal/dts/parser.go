// Package dts parses device tree source text into a model.Tree and writes
// it back.
//
// The parser keeps everything the serializer needs to reproduce the input:
// source order of properties, child blocks, comments and directives, labels,
// raw property payloads and blank-line separation. Comments are kept as
// opaque layout entries, never as nodes.
package dts

import (
	"fmt"
	"strings"

	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/model"
)

// ErrParsing matches every error returned by Parse
var ErrParsing = codec.ErrParsing

// ParseError carries the best-effort position of a syntax error
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dts: %d:%d: %s", e.Line, e.Column, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return ErrParsing
}

var cppDirectives = map[string]bool{
	"include": true, "define": true, "undef": true,
	"if": true, "ifdef": true, "ifndef": true, "elif": true, "else": true, "endif": true,
}

type position struct {
	line, col int
}

type parser struct {
	src  string
	pos  int
	line int
	col  int
	tree *model.Tree
}

// Parse converts DTS text into a tree
func Parse(text string) (*model.Tree, error) {
	p := &parser{src: text, line: 1, col: 1, tree: model.NewTree()}
	if err := p.parseBody(p.tree.Root(), nil); err != nil {
		return nil, err
	}
	return p.tree, nil
}

func (p *parser) errorf(at position, format string, args ...any) error {
	return &ParseError{Line: at.line, Column: at.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) here() position {
	return position{p.line, p.col}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek(offset int) byte {
	if p.pos+offset >= len(p.src) {
		return 0
	}
	return p.src[p.pos+offset]
}

func (p *parser) advance(n int) {
	for i := 0; i < n && p.pos < len(p.src); i++ {
		if p.src[p.pos] == '\n' {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
		p.pos++
	}
}

// skipSpace consumes whitespace and returns the number of newlines seen
func (p *parser) skipSpace() int {
	newlines := 0
	for !p.eof() {
		switch p.src[p.pos] {
		case '\n':
			newlines++
		case ' ', '\t', '\r', '\f', '\v':
		default:
			return newlines
		}
		p.advance(1)
	}
	return newlines
}

// parseBody reads statements into node id until the closing brace.
// open is nil for the document root.
func (p *parser) parseBody(id model.NodeID, open *position) error {
	first := true
	for {
		newlines := p.skipSpace()
		entry := model.Entry{BlankBefore: newlines >= 2, Inline: newlines == 0 && (open != nil || !first)}
		first = false

		if p.eof() {
			if open != nil {
				return p.errorf(*open, "unterminated block")
			}
			return nil
		}

		start := p.here()
		switch c := p.peek(0); {
		case c == '}':
			if open == nil {
				return p.errorf(start, "unexpected '}'")
			}
			p.advance(1)
			p.skipSpace()
			if p.peek(0) != ';' {
				return p.errorf(start, "expected ';' after '}'")
			}
			p.advance(1)
			return nil

		case c == '/' && p.peek(1) == '*':
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				return p.errorf(start, "unterminated comment")
			}
			entry.Kind = model.EntryComment
			entry.Text = p.src[p.pos : p.pos+2+end+2]
			p.advance(len(entry.Text))
			p.addEntry(id, entry)

		case c == '/' && p.peek(1) == '/':
			entry.Kind = model.EntryComment
			entry.Text = p.restOfLine()
			p.advance(len(entry.Text))
			p.addEntry(id, entry)

		case c == '#' && p.isCppDirective():
			entry.Kind = model.EntryDirective
			entry.Inline = false
			entry.Text = strings.TrimRight(p.restOfLine(), " \t\r")
			p.advance(len(entry.Text))
			p.addEntry(id, entry)

		case c == '/' && isLetter(p.peek(1)):
			text, err := p.readDirective(start)
			if err != nil {
				return err
			}
			entry.Kind = model.EntryDirective
			entry.Inline = false
			entry.Text = text
			p.addEntry(id, entry)

		default:
			entry.Inline = false
			if err := p.parseStatement(id, entry, start); err != nil {
				return err
			}
		}
	}
}

func (p *parser) addEntry(id model.NodeID, entry model.Entry) {
	n := p.tree.Node(id)
	n.Layout = append(n.Layout, entry)
}

func (p *parser) restOfLine() string {
	end := strings.IndexByte(p.src[p.pos:], '\n')
	if end < 0 {
		return p.src[p.pos:]
	}
	return strings.TrimRight(p.src[p.pos:p.pos+end], "\r")
}

func (p *parser) isCppDirective() bool {
	i := p.pos + 1
	for i < len(p.src) && isLetter(p.src[i]) {
		i++
	}
	word := p.src[p.pos+1 : i]
	if !cppDirectives[word] {
		return false
	}
	return i >= len(p.src) || p.src[i] == ' ' || p.src[i] == '\t' || p.src[i] == '\n' || p.src[i] == '\r'
}

// readDirective reads /dts-v1/; style statements. /include/ has no
// terminator and ends at the end of the line.
func (p *parser) readDirective(start position) (string, error) {
	if strings.HasPrefix(p.src[p.pos:], "/include/") {
		text := strings.TrimRight(p.restOfLine(), " \t")
		p.advance(len(text))
		return text, nil
	}
	end, err := p.scanValue(p.pos, start)
	if err != nil {
		return "", err
	}
	text := p.src[p.pos : end+1]
	p.advance(len(text))
	return text, nil
}

// scanValue returns the index of the ';' that ends the statement starting at
// from, skipping separators inside strings, cells and byte arrays
func (p *parser) scanValue(from int, start position) (int, error) {
	depth := 0
	for i := from; i < len(p.src); i++ {
		switch p.src[i] {
		case '"':
			j := i + 1
			for j < len(p.src) && p.src[j] != '"' {
				if p.src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(p.src) {
				return 0, p.errorf(start, "unterminated string")
			}
			i = j
		case '<', '[', '(':
			depth++
		case '>', ']', ')':
			depth--
		case ';':
			if depth <= 0 {
				return i, nil
			}
		case '{', '}':
			if depth <= 0 {
				return 0, p.errorf(start, "missing ';' before %q", p.src[i])
			}
		}
	}
	return 0, p.errorf(start, "unterminated statement")
}

// parseStatement handles node blocks, properties and flags
func (p *parser) parseStatement(id model.NodeID, entry model.Entry, start position) error {
	i := p.pos
	for i < len(p.src) && p.src[i] != '{' && p.src[i] != '=' && p.src[i] != ';' && p.src[i] != '}' {
		if p.src[i] == '"' || p.src[i] == '<' {
			return p.errorf(start, "unexpected %q in statement", p.src[i])
		}
		i++
	}
	if i >= len(p.src) || p.src[i] == '}' {
		return p.errorf(start, "unterminated statement")
	}

	labels, name, err := splitHead(p.src[p.pos:i])
	if err != nil {
		return p.errorf(start, "%v", err)
	}

	if p.src[i] == '{' {
		p.advance(i + 1 - p.pos)
		child := p.tree.AddChild(id, name)
		parent := p.tree.Node(id)
		last := &parent.Layout[len(parent.Layout)-1]
		last.BlankBefore = entry.BlankBefore
		p.tree.Node(child).Labels = labels
		return p.parseBody(child, &start)
	}

	// property labels stay part of the statement name
	if len(labels) > 0 {
		name = strings.Join(labels, ": ") + ": " + name
	}

	if p.src[i] == ';' {
		p.advance(i + 1 - p.pos)
		p.addProperty(id, entry, model.Property{Name: name, Kind: model.KindFlag})
		return nil
	}

	valueStart := i + 1
	end, err := p.scanValue(valueStart, start)
	if err != nil {
		return err
	}
	value := p.src[valueStart:end]
	raw := strings.TrimSpace(value)
	lead := len(value) - len(strings.TrimLeft(value, " \t\r\n"))
	p.advance(valueStart + lead - p.pos)
	valuePos := p.here()
	p.advance(end + 1 - p.pos)
	if raw == "" {
		return p.errorf(valuePos, "empty value for %s", name)
	}
	kind, err := codec.Classify(raw)
	if err != nil {
		return p.errorf(valuePos, "%s: %v", name, err)
	}
	p.addProperty(id, entry, model.Property{Name: name, Raw: raw, Kind: kind})
	return nil
}

func (p *parser) addProperty(id model.NodeID, entry model.Entry, prop model.Property) {
	n := p.tree.Node(id)
	entry.Kind = model.EntryProperty
	entry.Index = len(n.Properties)
	n.Properties = append(n.Properties, prop)
	n.Layout = append(n.Layout, entry)
}

// splitHead separates "label: other: name" into labels and the name
func splitHead(head string) ([]string, string, error) {
	var labels []string
	fields := strings.Fields(head)
	var rest []string
	for _, f := range fields {
		if strings.HasSuffix(f, ":") && len(rest) == 0 {
			labels = append(labels, strings.TrimSuffix(f, ":"))
			continue
		}
		rest = append(rest, f)
	}
	if len(rest) != 1 {
		if len(rest) == 0 {
			return nil, "", fmt.Errorf("missing name")
		}
		return nil, "", fmt.Errorf("unexpected %q after name %q", rest[1], rest[0])
	}
	return labels, rest[0], nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
