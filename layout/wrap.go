package layout

import (
	"math"
	"strings"
	"unicode"
)

// MeasureFunc 返回一段文本在给定样式下的宽度（mm）。
type MeasureFunc func(text string, style TextStyle) float64

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenSpace
	tokenBreak
)

// wrapToken 是折行的最小单位；一个词可能跨越多个样式片段。
type wrapToken struct {
	kind   tokenKind
	pieces []Run
}

func (t wrapToken) text() string { return runsText(t.pieces) }

// tokenizeRuns 把片段切分为词、空白与换行；perRune 时每个字符单独成词。
func tokenizeRuns(runs []Run, perRune bool) []wrapToken {
	var tokens []wrapToken
	for _, run := range runs {
		for _, r := range run.Text {
			if r == '\r' {
				continue
			}
			kind := tokenWord
			switch {
			case r == '\n':
				kind = tokenBreak
			case unicode.IsSpace(r):
				kind = tokenSpace
			}
			piece := run.withText(string(r))
			n := len(tokens)
			if kind != tokenBreak && !perRune && n > 0 && tokens[n-1].kind == kind {
				tokens[n-1].pieces = appendRun(tokens[n-1].pieces, piece)
				continue
			}
			tokens = append(tokens, wrapToken{kind: kind, pieces: []Run{piece}})
		}
	}
	return tokens
}

type measuredPiece struct {
	runs  []Run
	width float64
	space bool
}

func measureRuns(runs []Run, style TextStyle, measure MeasureFunc) float64 {
	w := 0.0
	for _, r := range runs {
		w += measure(r.Text, r.Effective(style))
	}
	return w
}

// WrapRuns 按 style 的折行策略贪心地把片段排成行，只计算宽度与断行位置，行高由排版后端填写。
// 软换行处的首尾空白会被去掉；空输入返回一个空行。
func WrapRuns(runs []Run, style TextStyle, measure MeasureFunc) []TextLine {
	limit := math.Inf(1)
	if style.Wrapping() && style.Wrap != WrapNone {
		limit = style.MaxWidth
	}

	var (
		lines     []TextLine
		cur       []measuredPiece
		width     float64
		afterSoft bool
	)
	emit := func(hard bool) {
		for len(cur) > 0 && cur[len(cur)-1].space {
			width -= cur[len(cur)-1].width
			cur = cur[:len(cur)-1]
		}
		var line []Run
		for _, p := range cur {
			for _, r := range p.runs {
				line = appendRun(line, r)
			}
		}
		lines = append(lines, TextLine{Runs: line, Width: math.Max(width, 0), HardBreak: hard})
		cur = nil
		width = 0
		afterSoft = !hard
	}

	for _, tok := range tokenizeRuns(runs, style.Wrap == WrapChar) {
		switch tok.kind {
		case tokenBreak:
			emit(true)
			continue
		case tokenSpace:
			if len(cur) == 0 && afterSoft {
				continue
			}
			w := measureRuns(tok.pieces, style, measure)
			cur = append(cur, measuredPiece{runs: tok.pieces, width: w, space: true})
			width += w
			continue
		}

		w := measureRuns(tok.pieces, style, measure)
		pieces := []measuredPiece{{runs: tok.pieces, width: w}}
		if w > limit && style.Wrap == WrapWordChar {
			pieces = splitWordByWidth(tok.pieces, limit, style, measure)
		}
		for _, p := range pieces {
			if len(cur) > 0 && width+p.width > limit {
				emit(false)
			}
			cur = append(cur, p)
			width += p.width
		}
	}
	emit(true)
	return lines
}

// splitWordByWidth 在词内按宽度拆分，每段至少包含一个字符。
func splitWordByWidth(pieces []Run, limit float64, style TextStyle, measure MeasureFunc) []measuredPiece {
	var (
		out   []measuredPiece
		cur   []Run
		width float64
	)
	for _, run := range pieces {
		for _, r := range run.Text {
			ch := run.withText(string(r))
			w := measure(ch.Text, ch.Effective(style))
			if len(cur) > 0 && width+w > limit {
				out = append(out, measuredPiece{runs: cur, width: width})
				cur, width = nil, 0
			}
			cur = appendRun(cur, ch)
			width += w
		}
	}
	if len(cur) > 0 {
		out = append(out, measuredPiece{runs: cur, width: width})
	}
	return out
}

// trimRunsRight 去掉片段序列末尾的空白（包括换行）。
func trimRunsRight(runs []Run) []Run {
	for len(runs) > 0 {
		last := runs[len(runs)-1]
		trimmed := strings.TrimRightFunc(last.Text, unicode.IsSpace)
		if trimmed != "" {
			runs[len(runs)-1] = last.withText(trimmed)
			return runs
		}
		runs = runs[:len(runs)-1]
	}
	return runs
}

// spaceLines 按行距倍数为第二行起的每一行设置额外的行前间距。
func spaceLines(lines []TextLine, spacing float64) {
	for i := range lines {
		if i == 0 {
			lines[i].GapBefore = 0
			continue
		}
		lines[i].GapBefore = math.Max(lines[i].Height*spacing-lines[i].Height, 0)
	}
}
