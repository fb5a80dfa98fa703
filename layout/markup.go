package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// 行内标记只支持 <b> <i> <u> <span> 以及 HTML 实体，其余一律视为 MARKUP_PARSE_ERROR。

var (
	markupLexer = lexer.MustStateful(lexer.Rules{
		"Root": {
			{Name: "CloseTag", Pattern: `</`, Action: lexer.Push("Tag")},
			{Name: "OpenTag", Pattern: `<`, Action: lexer.Push("Tag")},
			{Name: "Entity", Pattern: `&(?:[A-Za-z][A-Za-z0-9]*|#[0-9]+|#[xX][0-9A-Fa-f]+);`},
			{Name: "Text", Pattern: `[^<&]+`},
		},
		"Tag": {
			{Name: "TagEnd", Pattern: `>`, Action: lexer.Pop()},
			{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
			{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9_-]*`},
			{Name: "Equals", Pattern: `=`},
			{Name: "String", Pattern: `"[^"]*"|'[^']*'`},
		},
	})

	markupParser = participle.MustBuild[markupDoc](
		participle.Lexer(markupLexer),
		participle.Elide("Whitespace"),
	)
)

type markupDoc struct {
	Nodes []*markupNode `parser:"@@*"`
}

type markupNode struct {
	Text    *string        `parser:"  @Text"`
	Entity  *string        `parser:"| @Entity"`
	Element *markupElement `parser:"| @@"`
}

type markupElement struct {
	Pos      lexer.Position `parser:""`
	Name     string         `parser:"OpenTag @Ident"`
	Attrs    []*markupAttr  `parser:"@@* TagEnd"`
	Children []*markupNode  `parser:"@@*"`
	Close    string         `parser:"CloseTag @Ident TagEnd"`
}

type markupAttr struct {
	Key   string `parser:"@Ident Equals"`
	Value string `parser:"@String"`
}

// ParseMarkup 将带简单行内标记的文本解析为片段。
// 文本统一做 NFC 规范化，相邻同样式片段会被合并。
func ParseMarkup(text string) ([]Run, error) {
	doc, err := markupParser.ParseString("", text)
	if err != nil {
		return nil, wrapRenderError(CodeMarkup, err, text)
	}
	var runs []Run
	if err := collectRuns(&runs, doc.Nodes, Run{}); err != nil {
		return nil, wrapRenderError(CodeMarkup, err, text)
	}
	return runs, nil
}

// EscapeMarkup 转义纯文本，使其可以安全地作为标记文本使用。
func EscapeMarkup(s string) string {
	return html.EscapeString(s)
}

// StripMarkup 返回标记中的纯文本。
func StripMarkup(text string) (string, error) {
	runs, err := ParseMarkup(text)
	if err != nil {
		return "", err
	}
	return runsText(runs), nil
}

func collectRuns(out *[]Run, nodes []*markupNode, style Run) error {
	for _, n := range nodes {
		switch {
		case n.Text != nil:
			*out = appendRun(*out, style.withText(norm.NFC.String(*n.Text)))
		case n.Entity != nil:
			decoded := html.UnescapeString(*n.Entity)
			if decoded == *n.Entity {
				return fmt.Errorf("未知的实体 %s", *n.Entity)
			}
			*out = appendRun(*out, style.withText(decoded))
		case n.Element != nil:
			el := n.Element
			if !strings.EqualFold(el.Name, el.Close) {
				return fmt.Errorf("%s: 标签 <%s> 以 </%s> 结束", el.Pos, el.Name, el.Close)
			}
			inner, err := applyTag(style, el)
			if err != nil {
				return err
			}
			if err := collectRuns(out, el.Children, inner); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyTag(style Run, el *markupElement) (Run, error) {
	name := strings.ToLower(el.Name)
	if name != "span" && len(el.Attrs) > 0 {
		return style, fmt.Errorf("标签 <%s> 不接受属性", el.Name)
	}
	switch name {
	case "b":
		style.Bold = true
	case "i":
		style.Italic = true
	case "u":
		style.Underline = true
	case "span":
		for _, a := range el.Attrs {
			if err := applySpanAttr(&style, strings.ToLower(a.Key), strings.Trim(a.Value, `"'`)); err != nil {
				return style, err
			}
		}
	default:
		return style, fmt.Errorf("%s: 不支持的标签 <%s>", el.Pos, el.Name)
	}
	return style, nil
}

func applySpanAttr(style *Run, key, value string) error {
	switch key {
	case "color", "foreground", "fgcolor":
		c, err := ParseColor(value)
		if err != nil {
			return err
		}
		style.Color = &c
	case "weight", "font_weight":
		switch strings.ToLower(value) {
		case "bold", "heavy", "ultrabold", "semibold":
			style.Bold = true
		case "normal", "book", "regular":
			style.Bold = false
		default:
			return fmt.Errorf("span weight 取值 %q 无法识别", value)
		}
	case "style", "font_style":
		switch strings.ToLower(value) {
		case "italic", "oblique":
			style.Italic = true
		case "normal":
			style.Italic = false
		default:
			return fmt.Errorf("span style 取值 %q 无法识别", value)
		}
	case "underline":
		style.Underline = value != "none" && value != "false"
	case "size":
		v, err := strconv.ParseFloat(strings.TrimSuffix(value, "pt"), 64)
		if err != nil || v <= 0 {
			return fmt.Errorf("span size 取值 %q 无法识别", value)
		}
		style.Size = v
	default:
		return fmt.Errorf("span 不支持属性 %s", key)
	}
	return nil
}
