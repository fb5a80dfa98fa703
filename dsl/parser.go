package dsl

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var documentParser = participle.MustBuild[Document](
	participle.Lexer(quireLexer),
	participle.Elide("Whitespace", "LineComment", "BlockComment"),
)

// Error is a syntax or structure error with its source position.
type Error struct {
	Pos lexer.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Parse parses a document description from r.
func Parse(r io.Reader) (*Document, error) {
	return ParseNamed("", r)
}

// ParseString parses a document description held in a string.
func ParseString(input string) (*Document, error) {
	doc, err := documentParser.ParseString("", input)
	return checked(doc, err)
}

// ParseFile parses the document description stored at path; positions in
// errors carry the file name.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseNamed(path, f)
}

// ParseNamed parses r, reporting positions against name.
func ParseNamed(name string, r io.Reader) (*Document, error) {
	doc, err := documentParser.Parse(name, r)
	return checked(doc, err)
}

func checked(doc *Document, err error) (*Document, error) {
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return nil, &Error{Pos: perr.Position(), Msg: perr.Message()}
		}
		return nil, err
	}
	if err := validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// validate rejects repeated meta and styles sections; pages are checked by the builder.
func validate(doc *Document) error {
	seen := map[string]lexer.Position{}
	for _, s := range doc.Sections {
		var pos lexer.Position
		switch {
		case s.Meta != nil:
			pos = s.Meta.Pos
		case s.Styles != nil:
			pos = s.Styles.Pos
		default:
			continue
		}
		kind := s.Kind()
		if first, dup := seen[kind]; dup {
			return &Error{Pos: pos, Msg: fmt.Sprintf("duplicate %s section (first at %s)", kind, first)}
		}
		seen[kind] = pos
	}
	return nil
}
