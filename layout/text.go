package layout

import (
	"fmt"
	"iter"
	"math"
	"strings"

	"go.uber.org/zap"
)

// epsilon 吸收高度累加时的浮点误差。
const epsilon = 1e-9

// Budgets 是逐页的可用高度，超出长度后重复最后一个值。
type Budgets []float64

// At 返回第 i 页的预算；空预算视为无限高。
func (b Budgets) At(i int) float64 {
	if len(b) == 0 {
		return math.Inf(1)
	}
	if i >= len(b) {
		return b[len(b)-1]
	}
	return b[i]
}

// TextBlock 是已测量的文本块，构建后不可变。
type TextBlock struct {
	runs   []Run
	style  TextStyle
	ts     Typesetter
	lines  []TextLine
	width  float64
	height float64
}

// NewTextBlock 解析行内标记并通过 ts 测量文本。
func NewTextBlock(ts Typesetter, text string, style TextStyle) (*TextBlock, error) {
	runs, err := ParseMarkup(text)
	if err != nil {
		return nil, err
	}
	return newTextBlockRuns(ts, runs, style)
}

// NewPlainTextBlock 不解析标记，直接测量纯文本。
func NewPlainTextBlock(ts Typesetter, text string, style TextStyle) (*TextBlock, error) {
	return newTextBlockRuns(ts, []Run{{Text: text}}, style)
}

func newTextBlockRuns(ts Typesetter, runs []Run, style TextStyle) (*TextBlock, error) {
	if ts == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	if err := style.Validate(); err != nil {
		return nil, err
	}
	own := make([]Run, 0, len(runs))
	for _, r := range runs {
		own = appendRun(own, r)
	}
	lines, err := ts.LayoutLines(own, style)
	if err != nil {
		return nil, fmt.Errorf("排版文本失败: %w", err)
	}
	spaceLines(lines, style.LineSpacing)

	b := &TextBlock{runs: own, style: style, ts: ts, lines: lines}
	for _, l := range lines {
		b.height += l.GapBefore + l.Height
		b.width = math.Max(b.width, l.Width)
	}
	if style.Wrapping() {
		b.width = style.MaxWidth
	}
	return b, nil
}

func (b *TextBlock) Width() float64   { return b.width }
func (b *TextBlock) Height() float64  { return b.height }
func (b *TextBlock) LineCount() int   { return len(b.lines) }
func (b *TextBlock) Style() TextStyle { return b.style }

// Lines 返回排版后的行副本。
func (b *TextBlock) Lines() []TextLine {
	out := make([]TextLine, len(b.lines))
	copy(out, b.lines)
	return out
}

// Text 返回去掉标记后的纯文本。
func (b *TextBlock) Text() string { return runsText(b.runs) }

// Runs 返回样式片段副本。
func (b *TextBlock) Runs() []Run {
	out := make([]Run, len(b.runs))
	copy(out, b.runs)
	return out
}

// Words 返回按空白切分的词序列。
func (b *TextBlock) Words() []string {
	var words []string
	for _, tok := range tokenizeRuns(b.runs, false) {
		if tok.kind == tokenWord {
			words = append(words, tok.text())
		}
	}
	return words
}

// Draw 以 (x, y) 为左上角逐行绘制，按对齐方式偏移；两端对齐时拉伸除段落末行外的空格。
func (b *TextBlock) Draw(s Surface, x, y float64) error {
	cy := y
	for _, line := range b.lines {
		cy += line.GapBefore
		offset, spacing := 0.0, 0.0
		free := b.width - line.Width
		switch {
		case b.style.Justify && b.style.Wrapping() && !line.HardBreak && line.Spaces() > 0 && free > 0:
			spacing = free / float64(line.Spaces())
		case b.style.Align == AlignCenter:
			offset = free / 2
		case b.style.Align == AlignRight:
			offset = free
		}
		if err := s.ShowLine(line, x+offset, cy, b.style, spacing); err != nil {
			return err
		}
		cy += line.Height
	}
	return nil
}

// Split 按预算把文本拆成若干块，每块高度不超过对应预算（单个超高的词除外）。
// 整体能放入第一个预算时返回一个副本。
func (b *TextBlock) Split(budgets ...float64) ([]*TextBlock, error) {
	var out []*TextBlock
	for piece, err := range b.SplitSeq(budgets...) {
		if err != nil {
			return nil, err
		}
		out = append(out, piece)
	}
	return out, nil
}

// SplitSeq 是 Split 的惰性形式，只能遍历一次。
func (b *TextBlock) SplitSeq(budgets ...float64) iter.Seq2[*TextBlock, error] {
	return func(yield func(*TextBlock, error) bool) {
		bs := Budgets(budgets)
		units := trimLeadingUnits(splitUnits(b.runs))
		if b.height <= bs.At(0)+epsilon || len(units) == 0 {
			yield(b.copy(), nil)
			return
		}
		for i := 0; len(units) > 0; i++ {
			piece, n, err := b.fill(units, bs.At(i))
			if err != nil {
				yield(nil, err)
				return
			}
			Logger().Debug("拆分文本块",
				zap.Int("piece", i),
				zap.Int("words", n),
				zap.Float64("height", piece.height),
				zap.Float64("budget", bs.At(i)))
			if !yield(piece, nil) {
				return
			}
			units = trimLeadingUnits(units[n:])
		}
	}
}

func (b *TextBlock) copy() *TextBlock {
	c := *b
	c.runs = b.Runs()
	c.lines = b.Lines()
	return &c
}

// fill 找出能放入 budget 的最长前缀，并在断点落在行中间时回退到行边界。
func (b *TextBlock) fill(units []splitUnit, budget float64) (*TextBlock, int, error) {
	cache := make(map[int]*TextBlock)
	prefix := func(n int) (*TextBlock, error) {
		if blk, ok := cache[n]; ok {
			return blk, nil
		}
		blk, err := newTextBlockRuns(b.ts, joinUnits(units[:n]), b.style)
		if err != nil {
			return nil, err
		}
		cache[n] = blk
		return blk, nil
	}

	n := 1
	for n < len(units) {
		next, err := prefix(n + 1)
		if err != nil {
			return nil, 0, err
		}
		if next.height > budget+epsilon {
			break
		}
		n++
	}

	if n < len(units) {
		cur, err := prefix(n)
		if err != nil {
			return nil, 0, err
		}
		next, err := prefix(n + 1)
		if err != nil {
			return nil, 0, err
		}
		if cur.LineCount() == next.LineCount() {
			m := n - 1
			for ; m > 0; m-- {
				cand, err := prefix(m)
				if err != nil {
					return nil, 0, err
				}
				if cand.LineCount() < cur.LineCount() {
					break
				}
			}
			if m > 0 {
				n = m
			}
		}
	}

	blk, err := prefix(n)
	if err != nil {
		return nil, 0, err
	}
	return blk, n, nil
}

// splitUnit 是拆分文本的最小单位：一个词连同其后的空白，或一个显式换行。
type splitUnit struct {
	runs []Run
	brk  bool
}

func (u splitUnit) blank() bool {
	return u.brk || strings.TrimSpace(runsText(u.runs)) == ""
}

func splitUnits(runs []Run) []splitUnit {
	var units []splitUnit
	for _, tok := range tokenizeRuns(runs, false) {
		n := len(units)
		switch tok.kind {
		case tokenBreak:
			units = append(units, splitUnit{runs: tok.pieces, brk: true})
		case tokenSpace:
			if n > 0 && !units[n-1].brk {
				units[n-1].runs = append(units[n-1].runs, tok.pieces...)
				continue
			}
			units = append(units, splitUnit{runs: tok.pieces})
		default:
			units = append(units, splitUnit{runs: tok.pieces})
		}
	}
	return units
}

func trimLeadingUnits(units []splitUnit) []splitUnit {
	for len(units) > 0 && units[0].blank() {
		units = units[1:]
	}
	return units
}

func joinUnits(units []splitUnit) []Run {
	var runs []Run
	for _, u := range units {
		for _, r := range u.runs {
			runs = appendRun(runs, r)
		}
	}
	return trimRunsRight(runs)
}
