package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineTexts(lines []TextLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Content()
	}
	return out
}

func TestWrapRunsWordMode(t *testing.T) {
	lines := WrapRuns([]Run{{Text: "aaa bbb ccc dddd"}}, wrapped(8), monoMeasure)
	assert.Equal(t, []string{"aaa bbb", "ccc dddd"}, lineTexts(lines))
	assert.Equal(t, 7.0, lines[0].Width)
	assert.False(t, lines[0].HardBreak)
	assert.True(t, lines[1].HardBreak)
}

func TestWrapRunsKeepsStylesAcrossBreaks(t *testing.T) {
	runs := []Run{{Text: "one "}, {Text: "two three", Bold: true}}
	lines := WrapRuns(runs, wrapped(8), monoMeasure)
	require.Len(t, lines, 2)
	assert.Equal(t, []Run{{Text: "one "}, {Text: "two", Bold: true}}, lines[0].Runs)
	assert.Equal(t, []Run{{Text: "three", Bold: true}}, lines[1].Runs)
}

func TestWrapRunsModes(t *testing.T) {
	long := []Run{{Text: "abcdefghij xy"}}

	word := wrapped(4)
	assert.Equal(t, []string{"abcdefghij", "xy"}, lineTexts(WrapRuns(long, word, monoMeasure)))

	wordChar := wrapped(4)
	wordChar.Wrap = WrapWordChar
	assert.Equal(t, []string{"abcd", "efgh", "ij", "xy"}, lineTexts(WrapRuns(long, wordChar, monoMeasure)))

	char := wrapped(4)
	char.Wrap = WrapChar
	assert.Equal(t, []string{"abcd", "efgh", "ij x", "y"}, lineTexts(WrapRuns(long, char, monoMeasure)))

	none := wrapped(4)
	none.Wrap = WrapNone
	assert.Equal(t, []string{"abcdefghij xy"}, lineTexts(WrapRuns(long, none, monoMeasure)))
}

func TestWrapRunsHardBreaks(t *testing.T) {
	lines := WrapRuns([]Run{{Text: "a\n\nb"}}, wrapped(10), monoMeasure)
	assert.Equal(t, []string{"a", "", "b"}, lineTexts(lines))
	for _, l := range lines {
		assert.True(t, l.HardBreak)
	}

	empty := WrapRuns(nil, wrapped(10), monoMeasure)
	require.Len(t, empty, 1)
	assert.Empty(t, empty[0].Runs)
}

func TestTextBlockMeasure(t *testing.T) {
	style := wrapped(6)
	style.LineSpacing = 1.5
	blk, err := NewTextBlock(monoTypesetter{}, "aaaa bbbb cccc", style)
	require.NoError(t, err)

	assert.Equal(t, 3, blk.LineCount())
	assert.Equal(t, 6.0, blk.Width())
	// 首行无行前间距，之后每行 10*1.5-10
	assert.InDelta(t, 10+15+15, blk.Height(), 1e-9)
	assert.Equal(t, []string{"aaaa", "bbbb", "cccc"}, blk.Words())

	unwrapped := DefaultTextStyle()
	blk, err = NewTextBlock(monoTypesetter{}, "abc\nlonger", unwrapped)
	require.NoError(t, err)
	assert.Equal(t, 6.0, blk.Width())
	assert.Equal(t, 20.0, blk.Height())
}

func TestTextBlockRejectsInvalidStyle(t *testing.T) {
	style := DefaultTextStyle()
	style.Size = 0
	_, err := NewTextBlock(monoTypesetter{}, "x", style)
	assert.ErrorIs(t, err, ErrInvalidStyle)

	style = DefaultTextStyle()
	style.LineSpacing = -1
	_, err = NewTextBlock(monoTypesetter{}, "x", style)
	assert.ErrorIs(t, err, ErrInvalidStyle)
}

func TestTextBlockDrawAlignment(t *testing.T) {
	center := wrapped(10)
	center.Align = AlignCenter
	blk, err := NewTextBlock(monoTypesetter{}, "abcd", center)
	require.NoError(t, err)

	s := &recordingSurface{}
	require.NoError(t, blk.Draw(s, 100, 50))
	require.Len(t, s.lines, 1)
	assert.Equal(t, shownLine{text: "abcd", x: 103, y: 50}, s.lines[0])

	right := wrapped(10)
	right.Align = AlignRight
	blk, err = NewTextBlock(monoTypesetter{}, "abcd", right)
	require.NoError(t, err)
	s = &recordingSurface{}
	require.NoError(t, blk.Draw(s, 0, 0))
	assert.Equal(t, 6.0, s.lines[0].x)
}

func TestTextBlockDrawJustify(t *testing.T) {
	style := wrapped(10)
	style.Justify = true
	style.LineSpacing = 2
	blk, err := NewTextBlock(monoTypesetter{}, "aa bb cc dd", style)
	require.NoError(t, err)

	s := &recordingSurface{}
	require.NoError(t, blk.Draw(s, 0, 0))
	require.Len(t, s.lines, 2)
	// "aa bb cc" 宽 8，两个空格分摊剩余的 2
	assert.Equal(t, shownLine{text: "aa bb cc", spacing: 1}, s.lines[0])
	// 段落末行不拉伸，并位于行前间距之后
	assert.Equal(t, shownLine{text: "dd", y: 20}, s.lines[1])
}

func TestTextSplitFitsReturnsCopy(t *testing.T) {
	blk, err := NewTextBlock(monoTypesetter{}, "short text", wrapped(50))
	require.NoError(t, err)

	pieces, err := blk.Split(100)
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.NotSame(t, blk, pieces[0])
	assert.Equal(t, blk.Text(), pieces[0].Text())
	assert.Equal(t, blk.Height(), pieces[0].Height())
}

func TestTextSplitAcrossBudgets(t *testing.T) {
	// 30 个词，每行一个词，共 300 高
	words := make([]string, 30)
	for i := range words {
		words[i] = strings.Repeat(string(rune('a'+i%26)), 5)
	}
	blk, err := NewTextBlock(monoTypesetter{}, strings.Join(words, " "), wrapped(6))
	require.NoError(t, err)
	require.Equal(t, 300.0, blk.Height())

	pieces, err := blk.Split(100, 200)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, 100.0, pieces[0].Height())
	assert.Equal(t, 200.0, pieces[1].Height())

	var got []string
	for _, p := range pieces {
		got = append(got, p.Words()...)
	}
	assert.Equal(t, words, got)
	assert.Equal(t, blk.Style(), pieces[1].Style())
}

func TestTextSplitRepeatsLastBudget(t *testing.T) {
	blk, err := NewTextBlock(monoTypesetter{}, "a b c d e f g", wrapped(1))
	require.NoError(t, err)

	pieces, err := blk.Split(25)
	require.NoError(t, err)
	require.Len(t, pieces, 4)
	for _, p := range pieces[:3] {
		assert.Equal(t, 2, p.LineCount())
	}
	assert.Equal(t, []string{"g"}, pieces[3].Words())
}

func TestTextSplitOversizedWordStillProgresses(t *testing.T) {
	blk, err := NewTextBlock(monoTypesetter{}, "x y z", wrapped(1))
	require.NoError(t, err)

	pieces, err := blk.Split(5)
	require.NoError(t, err)
	require.Len(t, pieces, 3)
	for _, p := range pieces {
		assert.Len(t, p.Words(), 1)
	}
}

func TestTextSplitBacksOffToLineBoundary(t *testing.T) {
	// 两行："aa bb" 高 10，"cc dd" 因 dd 字号 30 而高 30
	blk, err := NewTextBlock(sizeTypesetter{}, `aa bb cc <span size="30">dd</span>`, wrapped(5))
	require.NoError(t, err)
	require.Equal(t, 2, blk.LineCount())
	require.Equal(t, 40.0, blk.Height())

	// "aa bb cc" 高 20 能放下，但 cc 与 dd 同行；加入 dd 会超出，
	// 所以第一块退回到上一行末尾，只含 "aa bb"。
	pieces, err := blk.Split(25)
	require.NoError(t, err)
	require.Len(t, pieces, 3)
	assert.Equal(t, []string{"aa", "bb"}, pieces[0].Words())
	assert.Equal(t, 1, pieces[0].LineCount())
	assert.Equal(t, 10.0, pieces[0].Height())

	// 剩余的 "cc dd" 只有一行，无法回退，按贪心断点切开
	assert.Equal(t, []string{"cc"}, pieces[1].Words())
	assert.Equal(t, []string{"dd"}, pieces[2].Words())

	var got []string
	for _, p := range pieces {
		got = append(got, p.Words()...)
	}
	assert.Equal(t, blk.Words(), got)
}

func TestTextSplitSingleLineKeepsGreedyBreak(t *testing.T) {
	// 整段只有一行，回退找不到更早的行边界时保留贪心结果
	blk, err := NewTextBlock(sizeTypesetter{}, `aa bb <span size="30">cc</span>`, wrapped(8))
	require.NoError(t, err)
	require.Equal(t, 1, blk.LineCount())
	require.Equal(t, 30.0, blk.Height())

	pieces, err := blk.Split(15)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, []string{"aa", "bb"}, pieces[0].Words())
	assert.Equal(t, 10.0, pieces[0].Height())
	assert.Equal(t, []string{"cc"}, pieces[1].Words())
	assert.Equal(t, 30.0, pieces[1].Height())
}

func TestTextSplitKeepsHardBreaks(t *testing.T) {
	blk, err := NewTextBlock(monoTypesetter{}, "one\ntwo\nthree", wrapped(20))
	require.NoError(t, err)

	pieces, err := blk.Split(20, 100)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, "one\ntwo", pieces[0].Text())
	assert.Equal(t, "three", pieces[1].Text())
}

func TestTextSplitSeqStopsEarly(t *testing.T) {
	blk, err := NewTextBlock(monoTypesetter{}, "a b c d", wrapped(1))
	require.NoError(t, err)

	n := 0
	for piece, err := range blk.SplitSeq(10) {
		require.NoError(t, err)
		require.NotNil(t, piece)
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestBudgetsAt(t *testing.T) {
	b := Budgets{10, 20}
	assert.Equal(t, 10.0, b.At(0))
	assert.Equal(t, 20.0, b.At(5))
	assert.True(t, Budgets(nil).At(0) > 1e300)
}
