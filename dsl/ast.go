package dsl

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Document is the root of a quire document description:
//
//	doc Name v1 { meta {...} styles {...} page A4 ... {...} }
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one of meta, styles or page.
type Section struct {
	Meta   *MetaSection   `parser:"  @@"`
	Styles *StylesSection `parser:"| @@"`
	Page   *PageSection   `parser:"| @@"`
}

// Kind returns the section keyword.
func (s *Section) Kind() string {
	switch {
	case s != nil && s.Meta != nil:
		return "meta"
	case s != nil && s.Styles != nil:
		return "styles"
	case s != nil && s.Page != nil:
		return "page"
	default:
		return "unknown"
	}
}

// MetaSection holds document information assignments (title, author, ...).
type MetaSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Block *Block         `parser:"'meta' @@"`
}

// StylesSection groups named text styles, line styles and colors.
type StylesSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Block *Block         `parser:"'styles' @@"`
}

// PageSection describes the page geometry and the content flowed onto it.
type PageSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Spec  PageSpec       `parser:"'page' @@"`
	Block *Block         `parser:"@@"`
}

// PageSpec is the page header: a size name followed by free-form parameters
// (orientation, margin, numbers, spacing).
type PageSpec struct {
	Size   string    `parser:"@Ident"`
	Params []*Lexeme `parser:"@@*"`
}

// Block is a braced list of statements separated by newlines or ';'.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement is an assignment, a command or a bare text literal.
// Assignments are tried first: "key:" is unambiguous after one token of lookahead.
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment is a "key: value" pair.
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident ':'"`
	Value *Value         `parser:"Newline* @@"`
}

// Command is a named instruction with arguments and an optional body.
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// TextLiteral is a string statement inside a block.
type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value is the right-hand side of an assignment.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Path   *Path          `parser:"| @@"`
}

// ArrayValue is a bracketed list separated by commas, ';' or newlines.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// Path is a bare identifier or dotted path such as Accent, true or data.items.
type Path struct {
	Parts []string `parser:"@Ident ( '.' @Ident )*"`
}

// String joins the path segments with dots.
func (p *Path) String() string { return strings.Join(p.Parts, ".") }

// Pages returns the page sections in declaration order.
func (d *Document) Pages() []*PageSection {
	var out []*PageSection
	for _, s := range d.Sections {
		if s.Page != nil {
			out = append(out, s.Page)
		}
	}
	return out
}

// Commands returns the command statements of a block, skipping assignments and literals.
func (b *Block) Commands() []*Command {
	if b == nil {
		return nil
	}
	var out []*Command
	for _, st := range b.Statements {
		if st.Command != nil {
			out = append(out, st.Command)
		}
	}
	return out
}

// Assignments returns the key/value statements of a block.
func (b *Block) Assignments() []*Assignment {
	if b == nil {
		return nil
	}
	var out []*Assignment
	for _, st := range b.Statements {
		if st.Assignment != nil {
			out = append(out, st.Assignment)
		}
	}
	return out
}

// Text concatenates all string literals of a block.
func (b *Block) Text() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	for _, st := range b.Statements {
		if st.Text != nil {
			sb.WriteString(string(st.Text.Value))
		}
	}
	return sb.String()
}

// ArgValues returns the unquoted values of the command arguments.
func (c *Command) ArgValues() []string {
	out := make([]string, len(c.Args))
	for i, a := range c.Args {
		out[i] = a.Value
	}
	return out
}

// JoinRaw rebuilds a dotted path such as items.list from consecutive lexemes.
func JoinRaw(parts []*Lexeme) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Raw)
	}
	return sb.String()
}

// Scalar renders a scalar value (string, number, color or bare expression) as text.
func (v *Value) Scalar() string {
	if v == nil {
		return ""
	}
	switch {
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Path != nil:
		return v.Path.String()
	default:
		return ""
	}
}

// Strings flattens an array value (or a single scalar) into strings.
func (v *Value) Strings() []string {
	if v == nil {
		return nil
	}
	if v.Array != nil {
		out := make([]string, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			if s := item.Scalar(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := v.Scalar(); s != "" {
		return []string{s}
	}
	return nil
}
