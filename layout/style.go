package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// 该文件定义线型、文本样式等值类型，只包含校验与合并逻辑。

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Black 是线条与文本的默认颜色。
var Black = Color{}

// ParseColor 解析 #rgb / #rrggbb / #rrggbbaa 形式的颜色。
func ParseColor(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(value) {
	case 3:
		r := strings.Repeat(string(value[0]), 2)
		g := strings.Repeat(string(value[1]), 2)
		b := strings.Repeat(string(value[2]), 2)
		return hexColor(r, g, b)
	case 6, 8:
		return hexColor(value[0:2], value[2:4], value[4:6])
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func hexColor(r, g, b string) (Color, error) {
	var out [3]int
	for i, s := range []string{r, g, b} {
		v, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("颜色值 %s%s%s 无法解析: %w", r, g, b, err)
		}
		out[i] = int(v)
	}
	return Color{R: out[0], G: out[1], B: out[2]}, nil
}

// Point 是页面坐标中的点（或位移）。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect 描述一个轴对齐矩形。
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// LinePattern 是线条的绘制方式。
type LinePattern int

const (
	Solid LinePattern = iota
	Double
	Dotted
	Dashed
)

func (p LinePattern) String() string {
	switch p {
	case Double:
		return "double"
	case Dotted:
		return "dotted"
	case Dashed:
		return "dashed"
	default:
		return "solid"
	}
}

// ParseLinePattern 将 solid/double/dotted/dashed 映射为 LinePattern。
func ParseLinePattern(s string) (LinePattern, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "solid":
		return Solid, nil
	case "double":
		return Double, nil
	case "dotted":
		return Dotted, nil
	case "dashed":
		return Dashed, nil
	default:
		return Solid, fmt.Errorf("未知的线型 %q", s)
	}
}

// LineStyle 描述规则线的外观。Gap 为 nil 时按线宽自动计算间距。
type LineStyle struct {
	Width   float64     `json:"width"`
	Pattern LinePattern `json:"pattern"`
	Color   Color       `json:"color"`
	Gap     *float64    `json:"gap,omitempty"`
}

// DefaultLineStyle 返回 0.1 宽的黑色实线。
func DefaultLineStyle() LineStyle {
	return LineStyle{Width: 0.1, Pattern: Solid}
}

// Validate 检查线宽必须为正。
func (ls LineStyle) Validate() error {
	if ls.Width <= 0 {
		return NewRenderError(CodeInvalidStyle, "line width must be positive", ls.Width)
	}
	if ls.Gap != nil && *ls.Gap < 0 {
		return NewRenderError(CodeInvalidStyle, "line gap must not be negative", *ls.Gap)
	}
	return nil
}

// WithGap 返回设置了显式间距的副本。
func (ls LineStyle) WithGap(gap float64) LineStyle {
	ls.Gap = &gap
	return ls
}

func (ls LineStyle) clone() LineStyle {
	if ls.Gap != nil {
		g := *ls.Gap
		ls.Gap = &g
	}
	return ls
}

// Align 是文本的水平对齐方式。
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// ParseAlign 支持 left/center/right 以及 start/end 别名。
func ParseAlign(s string) Align {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center", "middle":
		return AlignCenter
	case "right", "end":
		return AlignRight
	default:
		return AlignLeft
	}
}

// WrapMode 决定在限定宽度内如何折行。
type WrapMode int

const (
	// WrapWord 只在空白处折行，超长单词溢出。
	WrapWord WrapMode = iota
	// WrapWordChar 优先在空白处折行，单词本身超宽时在词内拆分。
	WrapWordChar
	// WrapChar 忽略空白，纯按宽度切分。
	WrapChar
	// WrapNone 只尊重显式换行。
	WrapNone
)

func (w WrapMode) String() string {
	switch w {
	case WrapWordChar:
		return "word-char"
	case WrapChar:
		return "char"
	case WrapNone:
		return "none"
	default:
		return "word"
	}
}

// ParseWrapMode 规范化折行策略，未知值按 word 处理。
func ParseWrapMode(v string) WrapMode {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "word-char", "anywhere":
		return WrapWordChar
	case "char", "break-word":
		return WrapChar
	case "none", "nowrap", "no-wrap":
		return WrapNone
	default:
		return WrapWord
	}
}

// TextStyle 描述文本块的排版参数。Size 以 pt 为单位，MaxWidth 为 0 时不折行。
type TextStyle struct {
	Family      string   `json:"family"`
	Size        float64  `json:"size"`
	Bold        bool     `json:"bold,omitempty"`
	Italic      bool     `json:"italic,omitempty"`
	Font        string   `json:"font,omitempty"` // 形如 "Sans Bold Italic 12"，优先于 Family/Size/Bold/Italic
	LineSpacing float64  `json:"lineSpacing"`
	Wrap        WrapMode `json:"wrap"`
	Justify     bool     `json:"justify,omitempty"`
	Align       Align    `json:"align"`
	Color       Color    `json:"color"`
	MaxWidth    float64  `json:"maxWidth,omitempty"`
}

// DefaultTextStyle 对应 10pt、单倍行距、左对齐的衬线体。
func DefaultTextStyle() TextStyle {
	return TextStyle{
		Family:      "serif",
		Size:        10,
		LineSpacing: 1,
		Wrap:        WrapWord,
		Align:       AlignLeft,
	}
}

// Validate 检查字号、行距与宽度。
func (s TextStyle) Validate() error {
	if s.LineSpacing < 0 {
		return NewRenderError(CodeInvalidStyle, "line spacing must not be negative", s.LineSpacing)
	}
	if s.MaxWidth < 0 {
		return NewRenderError(CodeInvalidStyle, "max width must not be negative", s.MaxWidth)
	}
	if s.Resolved().Size <= 0 {
		return NewRenderError(CodeInvalidStyle, "font size must be positive", s.Size)
	}
	return nil
}

// Resolved 应用 Font 描述符后返回最终的字体参数。
func (s TextStyle) Resolved() TextStyle {
	if strings.TrimSpace(s.Font) == "" {
		return s
	}
	fd := ParseFontDescriptor(s.Font)
	if fd.Family != "" {
		s.Family = fd.Family
	}
	if fd.Size > 0 {
		s.Size = fd.Size
	}
	s.Bold = fd.Bold
	s.Italic = fd.Italic
	s.Font = ""
	return s
}

// Wrapping 表示是否启用了宽度约束。
func (s TextStyle) Wrapping() bool { return s.MaxWidth > 0 }

// FontDescriptor 是解析后的字体描述符。
type FontDescriptor struct {
	Family string
	Size   float64
	Bold   bool
	Italic bool
}

// ParseFontDescriptor 解析 "Family [Bold] [Italic|Oblique] [Size]" 形式的描述符。
func ParseFontDescriptor(s string) FontDescriptor {
	var fd FontDescriptor
	var family []string
	for _, f := range strings.Fields(s) {
		lower := strings.ToLower(f)
		switch lower {
		case "bold", "semibold", "heavy", "black":
			fd.Bold = true
			continue
		case "italic", "oblique":
			fd.Italic = true
			continue
		case "normal", "regular", "book":
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSuffix(lower, "pt"), 64); err == nil {
			fd.Size = v
			continue
		}
		family = append(family, f)
	}
	fd.Family = strings.Join(family, " ")
	return fd
}

// TextUpdate 修改 TextStyle 的单个字段，用于批量覆盖表格单元格样式。
type TextUpdate func(*TextStyle)

func SetFamily(family string) TextUpdate    { return func(s *TextStyle) { s.Family = family } }
func SetSize(size float64) TextUpdate       { return func(s *TextStyle) { s.Size = size } }
func SetBold(bold bool) TextUpdate          { return func(s *TextStyle) { s.Bold = bold } }
func SetItalic(italic bool) TextUpdate      { return func(s *TextStyle) { s.Italic = italic } }
func SetAlign(a Align) TextUpdate           { return func(s *TextStyle) { s.Align = a } }
func SetColor(c Color) TextUpdate           { return func(s *TextStyle) { s.Color = c } }
func SetJustify(justify bool) TextUpdate    { return func(s *TextStyle) { s.Justify = justify } }
func SetWrap(w WrapMode) TextUpdate         { return func(s *TextStyle) { s.Wrap = w } }
func SetLineSpacing(v float64) TextUpdate   { return func(s *TextStyle) { s.LineSpacing = v } }
func SetFontDescriptor(f string) TextUpdate { return func(s *TextStyle) { s.Font = f } }

// ParseTextUpdate 将属性名与字符串值转换为 TextUpdate，只接受固定的字段集合。
func ParseTextUpdate(field, value string) (TextUpdate, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "family":
		return SetFamily(value), nil
	case "font":
		return SetFontDescriptor(value), nil
	case "size":
		v, err := strconv.ParseFloat(strings.TrimSuffix(value, "pt"), 64)
		if err != nil {
			return nil, fmt.Errorf("字号 %q 无法解析: %w", value, err)
		}
		return SetSize(v), nil
	case "bold":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("bold 取值 %q 无法解析: %w", value, err)
		}
		return SetBold(v), nil
	case "italic":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("italic 取值 %q 无法解析: %w", value, err)
		}
		return SetItalic(v), nil
	case "justify":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("justify 取值 %q 无法解析: %w", value, err)
		}
		return SetJustify(v), nil
	case "align":
		return SetAlign(ParseAlign(value)), nil
	case "wrap":
		return SetWrap(ParseWrapMode(value)), nil
	case "color":
		c, err := ParseColor(value)
		if err != nil {
			return nil, err
		}
		return SetColor(c), nil
	case "line-spacing", "spacing":
		v, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64)
		if err != nil {
			return nil, fmt.Errorf("行距 %q 无法解析: %w", value, err)
		}
		return SetLineSpacing(v), nil
	default:
		return nil, NewRenderError(CodeInvalidStyle, "unknown text style field", field)
	}
}
