package layout

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fourColumns = []string{"a", "b", "c", "d"}

func fourRow() Row { return Row{"a": "a", "b": "bb", "c": "ccc", "d": "dddd"} }

func newTable(t *testing.T, columns []string, head, body, foot []Row, opts ...TableOption) *TableBlock {
	t.Helper()
	style, err := NewTableStyle(columns, opts...)
	require.NoError(t, err)
	tb, err := NewTableBlock(monoTypesetter{}, style, head, body, foot)
	require.NoError(t, err)
	return tb
}

func bodyRows(n int, cols ...string) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{}
		for _, c := range cols {
			rows[i][c] = fmt.Sprintf("%s%d", c, i)
		}
	}
	return rows
}

func sum(vs []float64) float64 {
	total := 0.0
	for _, v := range vs {
		total += v
	}
	return total
}

func TestTableFixedWidthEqualColumns(t *testing.T) {
	tb := newTable(t, fourColumns, nil, []Row{fourRow()}, nil,
		WithTableWidth(WidthFixed, 100), WithColumnWidth(WidthEqual, 0))

	assert.Equal(t, 100.0, tb.Width())
	// 100 - 3*(2+2) - 2 - 2 = 84
	for _, w := range tb.ColumnWidths() {
		assert.InDelta(t, 21, w, 1e-9)
	}
}

func TestTableFixedWidthAutoColumnsProportional(t *testing.T) {
	tb := newTable(t, fourColumns, nil, []Row{fourRow()}, nil,
		WithTableWidth(WidthFixed, 100))

	assert.Equal(t, 100.0, tb.Width())
	assert.InDeltaSlice(t, []float64{8.4, 16.8, 25.2, 33.6}, tb.ColumnWidths(), 1e-9)
	assert.InDelta(t, 84, sum(tb.ColumnWidths()), 1e-9)
}

func TestTableFixedWidthEmptyCellsFallBackToEqual(t *testing.T) {
	tb := newTable(t, []string{"a", "b"}, nil, []Row{{"a": "", "b": ""}}, nil,
		WithTableWidth(WidthFixed, 48))
	assert.InDeltaSlice(t, []float64{20, 20}, tb.ColumnWidths(), 1e-9)
}

func TestTableAutoWidths(t *testing.T) {
	natural := newTable(t, fourColumns, nil, []Row{fourRow()}, nil)
	assert.Equal(t, []float64{1, 2, 3, 4}, natural.ColumnWidths())
	assert.Equal(t, 10.0+3*4+4, natural.Width())

	equal := newTable(t, fourColumns, nil, []Row{fourRow()}, nil, WithColumnWidth(WidthEqual, 0))
	assert.Equal(t, []float64{4, 4, 4, 4}, equal.ColumnWidths())

	fixed := newTable(t, fourColumns, nil, []Row{fourRow()}, nil, WithColumnWidth(WidthFixed, 30))
	assert.Equal(t, []float64{30, 30, 30, 30}, fixed.ColumnWidths())
	assert.Equal(t, 120.0+3*4+4, fixed.Width())
}

func TestTableWrapsCellsToColumnWidth(t *testing.T) {
	tb := newTable(t, []string{"a"}, nil, []Row{{"a": "aaaa bbbb"}}, nil, WithColumnWidth(WidthFixed, 5))
	assert.Equal(t, 2, tb.Cell(PartBody, 0, 0).LineCount())
	assert.Equal(t, []float64{20}, tb.RowHeights(PartBody))
	assert.Equal(t, 24.0, tb.Height())
}

func TestTableHeightsAndPadding(t *testing.T) {
	tb := newTable(t, []string{"a"}, []Row{{"a": "h"}}, bodyRows(3, "a"), []Row{{"a": "f"}})
	assert.Equal(t, 14.0, tb.PartHeight(PartHead))
	assert.Equal(t, 42.0, tb.PartHeight(PartBody))
	assert.Equal(t, 14.0, tb.PartHeight(PartFoot))
	assert.Equal(t, 70.0, tb.Height())

	skipped := newTable(t, []string{"a", "b"}, nil, bodyRows(3, "a", "b"), nil,
		WithSkipPadding(true), WithColumnWidth(WidthFixed, 10))
	// 外缘的上下左右内边距被省略
	assert.Equal(t, 14.0+14+10, skipped.Height())
	assert.Equal(t, 10.0+10+4, skipped.Width())

	wide := newTable(t, []string{"a"}, nil, bodyRows(1, "a"), nil, WithPadding(5, SideTop, SideBottom))
	assert.Equal(t, 20.0, wide.Height())
	assert.Equal(t, Padding{Left: 2, Right: 2, Top: 5, Bottom: 5}, wide.Style().Padding())
}

func TestTableCellsParseMarkup(t *testing.T) {
	tb := newTable(t, []string{"name", "qty"}, nil, []Row{{"name": "<b>Widget</b>", "qty": 3}}, nil)
	assert.Equal(t, []Run{{Text: "Widget", Bold: true}}, tb.Cell(PartBody, 0, 0).Runs())
	assert.Equal(t, "3", tb.Cell(PartBody, 0, 1).Text())

	escaped := newTable(t, []string{"x"}, nil, []Row{{"x": nil}}, nil)
	assert.Equal(t, "<nil>", escaped.Cell(PartBody, 0, 0).Text())
}

func TestTableCellStyles(t *testing.T) {
	big := DefaultTextStyle()
	big.Size = 20
	tb := newTable(t, []string{"a", "b"}, bodyRows(1, "a", "b"), bodyRows(1, "a", "b"), nil,
		WithColumnStyle("b", big),
		WithPartUpdate(PartHead, SetBold(true)),
		WithColumnUpdate("a", SetAlign(AlignRight)))

	assert.Equal(t, 20.0, tb.Cell(PartBody, 0, 1).Style().Size)
	assert.True(t, tb.Cell(PartHead, 0, 1).Style().Bold)
	assert.False(t, tb.Cell(PartBody, 0, 1).Style().Bold)
	assert.Equal(t, AlignRight, tb.Cell(PartBody, 0, 0).Style().Align)
}

func TestTableMissingCell(t *testing.T) {
	style, err := NewTableStyle([]string{"a", "b"})
	require.NoError(t, err)
	_, err = NewTableBlock(monoTypesetter{}, style, nil, []Row{{"a": "x", "b": "y"}, {"a": "only"}}, nil)
	require.ErrorIs(t, err, ErrMissingCell)

	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []any{"body", 1, "b"}, re.Args)
}

func TestTableStyleInvalidCombinations(t *testing.T) {
	_, err := NewTableStyle([]string{"a"}, WithTableWidth(WidthFixed, 100), WithColumnWidth(WidthFixed, 10))
	assert.ErrorIs(t, err, ErrInvalidStyle)

	_, err = NewTableStyle([]string{"a"}, WithColumnWidth(WidthFixed, 10), WithTableWidth(WidthFixed, 100))
	assert.ErrorIs(t, err, ErrInvalidStyle)

	_, err = NewTableStyle(nil)
	assert.ErrorIs(t, err, ErrInvalidStyle)

	_, err = NewTableStyle([]string{"a", "a"})
	assert.ErrorIs(t, err, ErrInvalidStyle)

	_, err = NewTableStyle([]string{"a"}, WithTableWidth(WidthEqual, 0))
	assert.ErrorIs(t, err, ErrInvalidStyle)

	_, err = NewTableStyle([]string{"a"}, WithColumnUpdate("zzz", SetBold(true)))
	assert.ErrorIs(t, err, ErrInvalidStyle)

	_, err = NewTableStyle([]string{"a"}, WithPadding(-1))
	assert.ErrorIs(t, err, ErrInvalidStyle)

	style, err := NewTableStyle(fourColumns, WithTableWidth(WidthFixed, 10))
	require.NoError(t, err)
	_, err = NewTableBlock(monoTypesetter{}, style, nil, []Row{fourRow()}, nil)
	assert.ErrorIs(t, err, ErrInvalidStyle)
}

func TestTableStyleApplyIsAtomic(t *testing.T) {
	style, err := NewTableStyle([]string{"a"}, WithPadding(1))
	require.NoError(t, err)

	err = style.Apply(WithPadding(4), WithColumnStyle("missing", DefaultTextStyle()))
	require.Error(t, err)
	assert.Equal(t, 1.0, style.Padding().Left)
}

func TestTableDrawPlacesCellsAndRules(t *testing.T) {
	thin := LineStyle{Width: 0.2}
	tb := newTable(t, []string{"a", "b"}, []Row{{"a": "H", "b": "H"}}, bodyRows(2, "a", "b"), nil,
		WithColumnWidth(WidthFixed, 10),
		WithVRule(thin, VRuleMiddle),
		WithHRule(thin, HRuleHead, HRuleMiddle))

	s := &recordingSurface{}
	require.NoError(t, tb.Draw(s, 0, 0))

	require.Len(t, s.lines, 6)
	assert.Equal(t, shownLine{text: "H", x: 2, y: 2}, s.lines[0])
	assert.Equal(t, shownLine{text: "H", x: 16, y: 2}, s.lines[1])
	assert.Equal(t, shownLine{text: "a0", x: 2, y: 16}, s.lines[2])

	// 中间竖线、表头线、表体内一条中间线
	require.Len(t, s.strokes, 3)
	assert.Equal(t, Stroke{From: Point{X: 14}, To: Point{X: 14, Y: 42}, Pen: Pen{Width: 0.2}}, s.strokes[0])
	assert.Equal(t, Point{Y: 14}, s.strokes[1].From)
	assert.Equal(t, Point{X: 28, Y: 14}, s.strokes[1].To)
	assert.Equal(t, 28.0, s.strokes[2].From.Y)
	assert.Zero(t, s.depth)
}

func TestTableSplitConservesRows(t *testing.T) {
	tb := newTable(t, []string{"a"}, []Row{{"a": "head"}}, bodyRows(10, "a"), nil)

	pieces, err := tb.Split(true, 50)
	require.NoError(t, err)
	require.Len(t, pieces, 5)

	total := 0
	for _, p := range pieces {
		assert.Equal(t, 1, p.RowCount(PartHead))
		assert.LessOrEqual(t, p.Height(), 50.0)
		assert.Equal(t, tb.ColumnWidths(), p.ColumnWidths())
		total += p.RowCount(PartBody)
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, "a9", pieces[4].Cell(PartBody, 1, 0).Text())

	once, err := tb.Split(false, 50)
	require.NoError(t, err)
	require.Len(t, once, 4)
	assert.Equal(t, 1, once[0].RowCount(PartHead))
	assert.Equal(t, 0, once[1].RowCount(PartHead))
	assert.Equal(t, 3, once[1].RowCount(PartBody))
}

func TestTableSplitFitsReturnsWholeTable(t *testing.T) {
	tb := newTable(t, []string{"a"}, []Row{{"a": "h"}}, bodyRows(2, "a"), []Row{{"a": "f"}})
	pieces, err := tb.Split(true, 100)
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.NotSame(t, tb, pieces[0])
	assert.Equal(t, tb.Height(), pieces[0].Height())
}

func TestTableSplitFooter(t *testing.T) {
	tb := newTable(t, []string{"a"}, []Row{{"a": "h"}}, bodyRows(2, "a"), []Row{{"a": "f"}})

	pieces, err := tb.Split(true, 45)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, 0, pieces[0].RowCount(PartFoot))
	assert.Equal(t, 2, pieces[0].RowCount(PartBody))
	assert.Equal(t, 1, pieces[1].RowCount(PartHead))
	assert.Equal(t, 1, pieces[1].RowCount(PartFoot))

	// 第二页放不下表头与表尾时只放表尾
	pieces, err = tb.Split(true, 45, 20)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, 0, pieces[1].RowCount(PartHead))
	assert.Equal(t, 1, pieces[1].RowCount(PartFoot))
}

func TestTableSplitTooTall(t *testing.T) {
	tall := newTable(t, []string{"a"}, nil, []Row{{"a": "1\n2\n3\n4\n5"}}, nil, WithPadding(0))
	require.Equal(t, 50.0, tall.Height())
	_, err := tall.Split(false, 30)
	require.ErrorIs(t, err, ErrTableTooTall)

	head := []Row{{"a": "1\n2"}, {"a": "3\n4"}, {"a": "5\n6"}}
	tb := newTable(t, []string{"a"}, head, bodyRows(1, "a"), nil, WithPadding(0))
	require.Equal(t, 60.0, tb.PartHeight(PartHead))
	_, err = tb.Split(true, 50)
	require.ErrorIs(t, err, ErrTableTooTall)
}

func TestTableSplitPaddedRowTooTall(t *testing.T) {
	// 内容高 20，加上下内边距后 30，超过预算 25
	tb := newTable(t, []string{"a"}, nil, []Row{{"a": "x\ny"}, {"a": "z"}}, nil, WithPadding(5))
	require.Equal(t, []float64{20, 10}, tb.RowHeights(PartBody))

	_, err := tb.Split(false, 25)
	require.ErrorIs(t, err, ErrTableTooTall)
	assert.NotErrorIs(t, err, ErrNoProgress)

	// 省略上下外缘内边距后 20 可以放下
	skipped := newTable(t, []string{"a"}, nil, []Row{{"a": "x\ny"}, {"a": "z"}}, nil,
		WithPadding(5), WithSkipPadding(true, SideTop, SideBottom))
	pieces, err := skipped.Split(false, 25)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
}

func TestTableSplitHeadWithRowTooTall(t *testing.T) {
	// 表头与任意一行单独都放得下，但重复表头时合起来放不下
	tb := newTable(t, []string{"a"}, []Row{{"a": "h"}}, bodyRows(2, "a"), nil, WithPadding(0))
	_, err := tb.Split(true, 15)
	require.ErrorIs(t, err, ErrTableTooTall)

	// 第一行总与表头同页
	_, err = tb.Split(false, 15)
	require.ErrorIs(t, err, ErrTableTooTall)
}

func TestTableSplitNoProgress(t *testing.T) {
	// 第一个预算通过检查，后续预算连一行都放不下
	tb := newTable(t, []string{"a"}, nil, bodyRows(10, "a"), nil, WithPadding(0))
	_, err := tb.Split(false, 50, 5)
	assert.ErrorIs(t, err, ErrNoProgress)
}
