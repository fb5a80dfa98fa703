package layout

import (
	"fmt"
	"iter"
	"math"
	"slices"

	"go.uber.org/zap"
)

// Row 是表格的一行，键为列名。值通过 fmt.Sprint 转为文本，字符串按行内标记解析。
type Row map[string]any

// tableRow 是已排版的一行：每列一个文本块，行高为其中最高者（不含内边距）。
type tableRow struct {
	cells  []*TextBlock
	height float64
}

// TableBlock 是已测量的表格，构建后不可变。
type TableBlock struct {
	style  *TableStyle
	widths []float64
	parts  [3][]tableRow
	width  float64
}

// NewTableBlock 依据样式与三部分的行数据构建表格。
func NewTableBlock(ts Typesetter, style *TableStyle, head, body, foot []Row) (*TableBlock, error) {
	if ts == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	if style == nil {
		return nil, fmt.Errorf("layout: 表格缺少样式")
	}
	style = style.Clone()
	if err := style.Validate(); err != nil {
		return nil, err
	}

	var grid [3][][][]Run
	for p, rows := range [3][]Row{head, body, foot} {
		g, err := markupGrid(style.columns, Part(p), rows)
		if err != nil {
			return nil, err
		}
		grid[p] = g
	}

	var natural []float64
	if style.tableWidth == WidthAuto && style.columnWidth != WidthFixed || style.tableWidth == WidthFixed && style.columnWidth == WidthAuto {
		probe, err := renderGrid(ts, style, grid, nil)
		if err != nil {
			return nil, err
		}
		natural = columnWidths(len(style.columns), probe)
	}
	widths, err := resolveWidths(style, natural)
	if err != nil {
		return nil, err
	}

	parts, err := renderGrid(ts, style, grid, widths)
	if err != nil {
		return nil, err
	}
	return newTableBlockRows(style, widths, parts), nil
}

// newTableBlockRows 由已排版的行组装表格，拆分时复用。
func newTableBlockRows(style *TableStyle, widths []float64, parts [3][]tableRow) *TableBlock {
	t := &TableBlock{style: style, widths: widths, parts: parts}
	if style.tableWidth == WidthFixed {
		t.width = style.width
		return t
	}
	pad, skip := style.padding, style.skip
	for _, w := range widths {
		t.width += w
	}
	t.width += float64(len(widths)-1) * (pad.Left + pad.Right)
	if !skip.Left {
		t.width += pad.Left
	}
	if !skip.Right {
		t.width += pad.Right
	}
	return t
}

func markupGrid(columns []string, part Part, rows []Row) ([][][]Run, error) {
	out := make([][][]Run, len(rows))
	for i, row := range rows {
		out[i] = make([][]Run, len(columns))
		for j, col := range columns {
			v, ok := row[col]
			if !ok {
				return nil, NewRenderError(CodeMissingCell, part.String(), i, col)
			}
			text, isString := v.(string)
			if !isString {
				text = EscapeMarkup(fmt.Sprint(v))
			}
			runs, err := ParseMarkup(text)
			if err != nil {
				return nil, err
			}
			out[i][j] = runs
		}
	}
	return out, nil
}

// renderGrid 排版所有单元格；widths 为 nil 时不限制宽度。
func renderGrid(ts Typesetter, style *TableStyle, grid [3][][][]Run, widths []float64) ([3][]tableRow, error) {
	var parts [3][]tableRow
	for p := range grid {
		for _, cells := range grid[p] {
			row := tableRow{cells: make([]*TextBlock, len(cells))}
			for j, runs := range cells {
				cs := style.cells[p][style.columns[j]]
				cs.MaxWidth = 0
				if widths != nil {
					cs.MaxWidth = widths[j]
				}
				blk, err := newTextBlockRuns(ts, runs, cs)
				if err != nil {
					return parts, err
				}
				row.cells[j] = blk
				row.height = math.Max(row.height, blk.Height())
			}
			parts[p] = append(parts[p], row)
		}
	}
	return parts, nil
}

// columnWidths 返回每列在三部分中的最大自然宽度。
func columnWidths(n int, parts [3][]tableRow) []float64 {
	widths := make([]float64, n)
	for _, rows := range parts {
		for _, r := range rows {
			for j, c := range r.cells {
				widths[j] = math.Max(widths[j], c.Width())
			}
		}
	}
	return widths
}

func resolveWidths(style *TableStyle, natural []float64) ([]float64, error) {
	n := len(style.columns)
	fill := func(v float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}

	if style.tableWidth == WidthAuto {
		switch style.columnWidth {
		case WidthEqual:
			return fill(slices.Max(natural)), nil
		case WidthFixed:
			return fill(style.colWidth), nil
		default:
			return natural, nil
		}
	}

	pad, skip := style.padding, style.skip
	avail := style.width - float64(n-1)*(pad.Left+pad.Right)
	if !skip.Left {
		avail -= pad.Left
	}
	if !skip.Right {
		avail -= pad.Right
	}
	if avail <= 0 {
		return nil, NewRenderError(CodeInvalidStyle, "table width leaves no room for columns", style.width)
	}

	if style.columnWidth == WidthAuto {
		total := 0.0
		for _, w := range natural {
			total += w
		}
		if total > 0 {
			out := make([]float64, n)
			for i, w := range natural {
				out[i] = avail * w / total
			}
			return out, nil
		}
	}
	return fill(avail / float64(n)), nil
}

func (t *TableBlock) Width() float64 { return t.width }

// Height 是三部分高度之和（含内边距）。
func (t *TableBlock) Height() float64 {
	return t.PartHeight(PartHead) + t.PartHeight(PartBody) + t.PartHeight(PartFoot)
}

// ColumnWidths 返回各列宽度（不含内边距）。
func (t *TableBlock) ColumnWidths() []float64 { return slices.Clone(t.widths) }

// RowCount 返回某部分的行数。
func (t *TableBlock) RowCount(part Part) int { return len(t.parts[part]) }

// RowHeights 返回某部分每行的高度（不含内边距）。
func (t *TableBlock) RowHeights(part Part) []float64 {
	out := make([]float64, len(t.parts[part]))
	for i, r := range t.parts[part] {
		out[i] = r.height
	}
	return out
}

// Cell 返回某部分第 row 行第 col 列的文本块。
func (t *TableBlock) Cell(part Part, row, col int) *TextBlock {
	return t.parts[part][row].cells[col]
}

// Style 返回表格样式的副本。
func (t *TableBlock) Style() *TableStyle { return t.style.Clone() }

// rowPadding 返回某行上下实际使用的内边距。
// 上边距只在整张表的第一行且 skip.Top 时省略，下边距同理。
func (t *TableBlock) rowPadding(part Part, i int) (top, bottom float64) {
	pad, skip := t.style.padding, t.style.skip
	top, bottom = pad.Top, pad.Bottom
	if skip.Top && i == 0 && t.firstPart() == part {
		top = 0
	}
	if skip.Bottom && i == len(t.parts[part])-1 && t.lastPart() == part {
		bottom = 0
	}
	return top, bottom
}

func (t *TableBlock) firstPart() Part {
	for p := PartHead; p <= PartFoot; p++ {
		if len(t.parts[p]) > 0 {
			return p
		}
	}
	return PartHead
}

func (t *TableBlock) lastPart() Part {
	for p := PartFoot; p >= PartHead; p-- {
		if len(t.parts[p]) > 0 {
			return p
		}
	}
	return PartFoot
}

// PartHeight 返回某部分的高度（含内边距）。
func (t *TableBlock) PartHeight(part Part) float64 {
	h := 0.0
	for i, r := range t.parts[part] {
		top, bottom := t.rowPadding(part, i)
		h += top + r.height + bottom
	}
	return h
}

// Draw 以 (x, y) 为左上角依次绘制表头、表体、表尾，再绘制规则线。
func (t *TableBlock) Draw(s Surface, x, y float64) error {
	pad, skip := t.style.padding, t.style.skip
	colX := make([]float64, len(t.widths))
	offset := 0.0
	for j, w := range t.widths {
		if j != 0 || !skip.Left {
			offset += pad.Left
		}
		colX[j] = offset
		offset += w + pad.Right
	}

	// 每部分内相邻行之间的分隔位置，供中间水平线使用
	var between []float64
	cy := 0.0
	for p := PartHead; p <= PartFoot; p++ {
		for i, r := range t.parts[p] {
			top, bottom := t.rowPadding(p, i)
			cy += top
			for j, c := range r.cells {
				if err := c.Draw(s, x+colX[j], y+cy); err != nil {
					return err
				}
			}
			cy += r.height + bottom
			if i < len(t.parts[p])-1 {
				between = append(between, cy)
			}
		}
	}

	h := t.Height()
	if ls, ok := t.style.VRuleStyle(VRuleLeft); ok {
		DrawRule(s, ls, Point{X: x, Y: y}, Point{Y: h})
	}
	if ls, ok := t.style.VRuleStyle(VRuleRight); ok {
		DrawRule(s, ls, Point{X: x + t.width, Y: y}, Point{Y: h})
	}
	if ls, ok := t.style.VRuleStyle(VRuleMiddle); ok {
		for j := 0; j < len(t.widths)-1; j++ {
			DrawRule(s, ls, Point{X: x + colX[j] + t.widths[j] + pad.Right, Y: y}, Point{Y: h})
		}
	}

	across := Point{X: t.width}
	if ls, ok := t.style.HRuleStyle(HRuleTop); ok {
		DrawRule(s, ls, Point{X: x, Y: y}, across)
	}
	if ls, ok := t.style.HRuleStyle(HRuleBottom); ok {
		DrawRule(s, ls, Point{X: x, Y: y + h}, across)
	}
	head, body, foot := len(t.parts[PartHead]), len(t.parts[PartBody]), len(t.parts[PartFoot])
	if ls, ok := t.style.HRuleStyle(HRuleHead); ok && head > 0 && body > 0 {
		DrawRule(s, ls, Point{X: x, Y: y + t.PartHeight(PartHead)}, across)
	}
	if ls, ok := t.style.HRuleStyle(HRuleFoot); ok && foot > 0 && head+body > 0 {
		DrawRule(s, ls, Point{X: x, Y: y + t.PartHeight(PartHead) + t.PartHeight(PartBody)}, across)
	}
	if ls, ok := t.style.HRuleStyle(HRuleMiddle); ok {
		for _, off := range between {
			DrawRule(s, ls, Point{X: x, Y: y + off}, across)
		}
	}
	return nil
}

// Split 把表格拆成若干块，每块高度不超过对应预算。
// repeatHeader 为 true 时每块都带表头，否则只有第一块带表头。
func (t *TableBlock) Split(repeatHeader bool, budgets ...float64) ([]*TableBlock, error) {
	var out []*TableBlock
	for piece, err := range t.SplitSeq(repeatHeader, budgets...) {
		if err != nil {
			return nil, err
		}
		out = append(out, piece)
	}
	return out, nil
}

// SplitSeq 是 Split 的惰性形式，只能遍历一次。
func (t *TableBlock) SplitSeq(repeatHeader bool, budgets ...float64) iter.Seq2[*TableBlock, error] {
	return func(yield func(*TableBlock, error) bool) {
		bs := Budgets(budgets)
		if err := t.checkSplittable(bs.At(0), repeatHeader); err != nil {
			yield(nil, err)
			return
		}
		if t.Height() <= bs.At(0)+epsilon {
			yield(t.sub(true, 0, len(t.parts[PartBody]), true), nil)
			return
		}

		body := t.parts[PartBody]
		next := 0
		footPlaced := len(t.parts[PartFoot]) == 0
		for page := 0; next < len(body) || !footPlaced; page++ {
			budget := bs.At(page)
			withHead := page == 0 || repeatHeader

			n := 0
			for next+n < len(body) && t.sub(withHead, next, next+n+1, false).Height() <= budget+epsilon {
				n++
			}
			withFoot := false
			if !footPlaced && next+n == len(body) {
				withFoot = t.sub(withHead, next, next+n, true).Height() <= budget+epsilon
				if !withFoot && n == 0 && withHead && page > 0 {
					// 表尾单独成页时放不下表头则省略表头
					withHead = false
					withFoot = t.sub(false, next, next, true).Height() <= budget+epsilon
				}
			}
			if n == 0 && !withFoot {
				yield(nil, NewRenderError(CodeNoProgress, "table", page, budget))
				return
			}

			piece := t.sub(withHead, next, next+n, withFoot)
			Logger().Debug("拆分表格",
				zap.Int("page", page),
				zap.Int("bodyRows", n),
				zap.Bool("head", withHead),
				zap.Bool("foot", withFoot),
				zap.Float64("height", piece.Height()),
				zap.Float64("budget", budget))
			if !yield(piece, nil) {
				return
			}
			next += n
			footPlaced = footPlaced || withFoot
		}
	}
}

// checkSplittable 检查每一行在只含该行的一页上（含内边距，需要时连同表头）
// 以及表头、表尾整体都不超过 budget。
func (t *TableBlock) checkSplittable(budget float64, repeatHeader bool) error {
	for _, p := range []Part{PartHead, PartFoot} {
		for i := range t.parts[p] {
			if h := t.rowSlice(p, i).Height(); h > budget+epsilon {
				return NewRenderError(CodeTableTooTall, p.String(), i, h, budget)
			}
		}
		if h := t.PartHeight(p); h > budget+epsilon {
			return NewRenderError(CodeTableTooTall, p.String(), h, budget)
		}
	}
	for i := range t.parts[PartBody] {
		// 第一行总与表头同页；重复表头时每一行都可能与表头同页
		withHead := i == 0 || repeatHeader
		if h := t.sub(withHead, i, i+1, false).Height(); h > budget+epsilon {
			return NewRenderError(CodeTableTooTall, PartBody.String(), i, h, budget)
		}
	}
	return nil
}

// rowSlice 返回只含 part 第 i 行的表格，内边距按该行独占一页计算。
func (t *TableBlock) rowSlice(part Part, i int) *TableBlock {
	var parts [3][]tableRow
	parts[part] = t.parts[part][i : i+1]
	return newTableBlockRows(t.style, t.widths, parts)
}

// sub 构建包含表体 [from, to) 行以及可选表头、表尾的新表格。
func (t *TableBlock) sub(head bool, from, to int, foot bool) *TableBlock {
	var parts [3][]tableRow
	if head {
		parts[PartHead] = t.parts[PartHead]
	}
	parts[PartBody] = t.parts[PartBody][from:to]
	if foot {
		parts[PartFoot] = t.parts[PartFoot]
	}
	return newTableBlockRows(t.style, t.widths, parts)
}
