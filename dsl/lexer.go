package dsl

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var quireLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Newline", Pattern: `\n+`},
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
	{Name: "Number", Pattern: `-?(?:\d+\.\d+|\.\d+|\d+)(?:pt|mm|cm|in|%|x)?`},
	{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:$]`},
	{Name: "LBrace", Pattern: `{`},
	{Name: "RBrace", Pattern: `}`},
})

// tokenKinds 把词法类型映射回规则名，供 Lexeme.Type 使用。
var tokenKinds = func() map[lexer.TokenType]string {
	out := map[lexer.TokenType]string{}
	for name, tt := range quireLexer.Symbols() {
		out[tt] = name
	}
	return out
}()

func tokenType(name string) lexer.TokenType {
	tt, ok := quireLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("dsl: token %s not defined", name))
	}
	return tt
}

var (
	newlineToken = tokenType("Newline")
	lbraceToken  = tokenType("LBrace")
	rbraceToken  = tokenType("RBrace")
	symbolToken  = tokenType("Symbol")
	stringToken  = tokenType("String")
)

// Lexeme is a single command or page argument token.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"` // unquoted for strings
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable: an argument is any token up to the end
// of the statement (newline, ';' or a brace).
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if tok.EOF() || endsStatement(tok) {
		return participle.NextMatch
	}
	tok = lex.Next()
	val := tok.Value
	if tok.Type == stringToken {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return participle.Errorf(tok.Pos, "invalid string %s: %v", tok.Value, err)
		}
		val = unquoted
	}
	kind, ok := tokenKinds[tok.Type]
	if !ok {
		kind = fmt.Sprintf("#%d", tok.Type)
	}
	*l = Lexeme{Type: kind, Value: val, Raw: tok.Value, Pos: tok.Pos}
	return nil
}

func endsStatement(tok *lexer.Token) bool {
	switch tok.Type {
	case newlineToken, lbraceToken, rbraceToken:
		return true
	case symbolToken:
		return tok.Value == ";"
	default:
		return false
	}
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}
