package layout

import (
	"image"
	"unicode/utf8"
)

// monoTypesetter 是测试用的等宽排版后端：每个字符 1mm 宽，行高 10，基线 8。
// 避免依赖 renderer 引入循环。
type monoTypesetter struct{}

const (
	monoLineHeight = 10.0
	monoAscent     = 8.0
)

func monoMeasure(text string, _ TextStyle) float64 {
	return float64(utf8.RuneCountInString(text))
}

func (monoTypesetter) LayoutLines(runs []Run, style TextStyle) ([]TextLine, error) {
	lines := WrapRuns(runs, style, monoMeasure)
	for i := range lines {
		lines[i].Height = monoLineHeight
		lines[i].Ascent = monoAscent
	}
	return lines, nil
}

// sizeTypesetter 与 monoTypesetter 同宽，但行高取该行最大字号（pt 直接当 mm），
// 用于构造一个大字号的词挤进已有行而把整行撑高的情形。
type sizeTypesetter struct{}

func (sizeTypesetter) LayoutLines(runs []Run, style TextStyle) ([]TextLine, error) {
	lines := WrapRuns(runs, style, monoMeasure)
	for i := range lines {
		h := style.Resolved().Size
		for _, r := range lines[i].Runs {
			h = max(h, r.Effective(style).Size)
		}
		lines[i].Height = h
		lines[i].Ascent = h * 0.8
	}
	return lines, nil
}

type shownLine struct {
	text    string
	x, y    float64
	spacing float64
}

// recordingSurface 记录所有绘制调用，depth 跟踪 Save/Restore 配对。
type recordingSurface struct {
	strokes []Stroke
	lines   []shownLine
	images  []Rect
	depth   int
	saves   int
}

func (s *recordingSurface) Save() {
	s.depth++
	s.saves++
}

func (s *recordingSurface) Restore() { s.depth-- }

func (s *recordingSurface) StrokePath(points []Point, pen Pen) {
	s.strokes = append(s.strokes, Stroke{From: points[0], To: points[len(points)-1], Pen: pen})
}

func (s *recordingSurface) ShowLine(line TextLine, x, y float64, _ TextStyle, wordSpacing float64) error {
	s.lines = append(s.lines, shownLine{text: line.Content(), x: x, y: y, spacing: wordSpacing})
	return nil
}

func (s *recordingSurface) DrawImage(_ image.Image, dst Rect) error {
	s.images = append(s.images, dst)
	return nil
}

func wrapped(width float64) TextStyle {
	st := DefaultTextStyle()
	st.MaxWidth = width
	return st
}
