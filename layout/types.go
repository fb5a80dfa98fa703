package layout

import "strings"

// 该文件定义文本片段与排版行，供排版后端、布局计算与调试 JSON 共用。

// Run 是一段样式一致的文本，由行内标记解析得到。
type Run struct {
	Text      string  `json:"text"`
	Bold      bool    `json:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Underline bool    `json:"underline,omitempty"`
	Color     *Color  `json:"color,omitempty"` // 为空时使用 TextStyle.Color
	Size      float64 `json:"size,omitempty"`  // pt，0 表示继承 TextStyle.Size
}

// sameStyle 判断两个片段能否合并。
func (r Run) sameStyle(o Run) bool {
	if r.Bold != o.Bold || r.Italic != o.Italic || r.Underline != o.Underline || r.Size != o.Size {
		return false
	}
	if (r.Color == nil) != (o.Color == nil) {
		return false
	}
	return r.Color == nil || *r.Color == *o.Color
}

// withText 返回样式相同、内容不同的片段。
func (r Run) withText(text string) Run {
	r.Text = text
	return r
}

// Effective 合并片段与块样式，得到该片段实际使用的字体参数。
func (r Run) Effective(style TextStyle) TextStyle {
	style = style.Resolved()
	if r.Bold {
		style.Bold = true
	}
	if r.Italic {
		style.Italic = true
	}
	if r.Size > 0 {
		style.Size = r.Size
	}
	if r.Color != nil {
		style.Color = *r.Color
	}
	return style
}

// TextLine 表示排版后的一行及其宽高。
type TextLine struct {
	Runs      []Run   `json:"runs"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Ascent    float64 `json:"ascent"`
	GapBefore float64 `json:"gapBefore,omitempty"`
	// HardBreak 表示该行以显式换行或段落结尾结束（两端对齐时不拉伸）。
	HardBreak bool `json:"hardBreak,omitempty"`
}

// Content 返回行的纯文本。
func (l TextLine) Content() string {
	return runsText(l.Runs)
}

// Spaces 统计行内可拉伸的空格数。
func (l TextLine) Spaces() int {
	n := 0
	for _, r := range l.Runs {
		n += strings.Count(r.Text, " ")
	}
	return n
}

func runsText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// appendRun 追加片段，与上一片段样式相同时合并。
func appendRun(runs []Run, r Run) []Run {
	if r.Text == "" {
		return runs
	}
	if n := len(runs); n > 0 && runs[n-1].sameStyle(r) {
		runs[n-1].Text += r.Text
		return runs
	}
	return append(runs, r)
}
