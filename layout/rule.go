package layout

import "math"

// Pen 是一次描边所需的全部状态。
type Pen struct {
	Width    float64   `json:"width"`
	Color    Color     `json:"color"`
	Dashes   []float64 `json:"dashes,omitempty"`
	RoundCap bool      `json:"roundCap,omitempty"`
}

// Stroke 是一条待描边的直线段。
type Stroke struct {
	From Point `json:"from"`
	To   Point `json:"to"`
	Pen  Pen   `json:"pen"`
}

// patternGap 是点线与虚线的默认间距：width*(2 + 1/width)。
func patternGap(ls LineStyle) float64 {
	if ls.Gap != nil {
		return *ls.Gap
	}
	return ls.Width * (2 + 1/ls.Width)
}

// doubleGap 是双线两条线中心之间的距离：width*(1.5 - 0.3*ln(width))。
func doubleGap(ls LineStyle) float64 {
	if ls.Gap != nil {
		return *ls.Gap
	}
	return ls.Width * (1.5 - 0.3*math.Log(ls.Width))
}

// RuleStrokes 计算从 from 出发、位移为 delta 的规则线需要描的线段。
// 长度为 0 的线段不产生任何描边。
func RuleStrokes(ls LineStyle, from, delta Point) []Stroke {
	length := math.Hypot(delta.X, delta.Y)
	if length == 0 {
		return nil
	}
	to := Point{X: from.X + delta.X, Y: from.Y + delta.Y}
	pen := Pen{Width: ls.Width, Color: ls.Color}

	switch ls.Pattern {
	case Double:
		// 单位法向量 (-dy, dx)/|d| 乘以 gap/2，两条线都使用完整线宽
		half := doubleGap(ls) / 2
		nx := -delta.Y / length * half
		ny := delta.X / length * half
		return []Stroke{
			{From: Point{from.X + nx, from.Y + ny}, To: Point{to.X + nx, to.Y + ny}, Pen: pen},
			{From: Point{from.X - nx, from.Y - ny}, To: Point{to.X - nx, to.Y - ny}, Pen: pen},
		}
	case Dotted:
		pen.Dashes = []float64{0, patternGap(ls)}
		pen.RoundCap = true
	case Dashed:
		pen.Dashes = []float64{patternGap(ls)}
	}
	return []Stroke{{From: from, To: to, Pen: pen}}
}

// DrawRule 在 s 上绘制规则线，调用前后的绘制状态保持不变。
func DrawRule(s Surface, ls LineStyle, from, delta Point) {
	strokes := RuleStrokes(ls, from, delta)
	if len(strokes) == 0 {
		return
	}
	s.Save()
	defer s.Restore()
	for _, st := range strokes {
		s.StrokePath([]Point{st.From, st.To}, st.Pen)
	}
}

// RuleBlock 是独立放置在页面上的规则线，高度为线的纵向跨度。
type RuleBlock struct {
	style LineStyle
	delta Point
}

// NewRuleBlock 创建一条从块原点出发、位移为 delta 的规则线。
func NewRuleBlock(style LineStyle, delta Point) (*RuleBlock, error) {
	if err := style.Validate(); err != nil {
		return nil, err
	}
	return &RuleBlock{style: style.clone(), delta: delta}, nil
}

func (r *RuleBlock) Width() float64  { return math.Abs(r.delta.X) }
func (r *RuleBlock) Height() float64 { return math.Abs(r.delta.Y) }

// Draw 在 (x, y) 处绘制规则线。
func (r *RuleBlock) Draw(s Surface, x, y float64) error {
	DrawRule(s, r.style, Point{X: x, Y: y}, r.delta)
	return nil
}
