package layout

import (
	"fmt"
	"slices"
	"strings"
)

// Part 是表格的组成部分。
type Part int

const (
	PartHead Part = iota
	PartBody
	PartFoot
)

var partNames = [...]string{"head", "body", "foot"}

func (p Part) String() string {
	if p < PartHead || p > PartFoot {
		return fmt.Sprintf("Part(%d)", int(p))
	}
	return partNames[p]
}

// ParsePart 解析 head/body/foot。
func ParsePart(s string) (Part, error) {
	for i, name := range partNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Part(i), nil
		}
	}
	return PartBody, NewRenderError(CodeInvalidStyle, "unknown table part", s)
}

// Side 用于选择内边距的某一侧。
type Side int

const (
	SideLeft Side = iota
	SideRight
	SideTop
	SideBottom
)

// ParseSide 解析 left/right/top/bottom。
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return SideLeft, nil
	case "right":
		return SideRight, nil
	case "top":
		return SideTop, nil
	case "bottom":
		return SideBottom, nil
	default:
		return SideLeft, NewRenderError(CodeInvalidStyle, "unknown side", s)
	}
}

// Padding 是单元格四周的内边距。
type Padding struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Edges 标记表格外缘哪些内边距被省略。
type Edges struct {
	Left   bool `json:"left,omitempty"`
	Right  bool `json:"right,omitempty"`
	Top    bool `json:"top,omitempty"`
	Bottom bool `json:"bottom,omitempty"`
}

// WidthPolicy 是表格或列的宽度策略。
type WidthPolicy int

const (
	WidthAuto WidthPolicy = iota
	WidthEqual
	WidthFixed
)

func (w WidthPolicy) String() string {
	switch w {
	case WidthEqual:
		return "equal"
	case WidthFixed:
		return "fixed"
	default:
		return "auto"
	}
}

// ParseWidthPolicy 解析 auto/equal/fixed。
func ParseWidthPolicy(s string) (WidthPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return WidthAuto, nil
	case "equal":
		return WidthEqual, nil
	case "fixed":
		return WidthFixed, nil
	default:
		return WidthAuto, NewRenderError(CodeInvalidStyle, "unknown width policy", s)
	}
}

// HRule 是水平规则线的位置。
type HRule int

const (
	HRuleTop HRule = iota
	HRuleMiddle
	HRuleBottom
	HRuleHead
	HRuleFoot
	hruleCount
)

// VRule 是垂直规则线的位置。
type VRule int

const (
	VRuleLeft VRule = iota
	VRuleMiddle
	VRuleRight
	vruleCount
)

// ParseHRule 解析 top/middle/bottom/head/foot。
func ParseHRule(s string) (HRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top":
		return HRuleTop, nil
	case "middle":
		return HRuleMiddle, nil
	case "bottom":
		return HRuleBottom, nil
	case "head":
		return HRuleHead, nil
	case "foot":
		return HRuleFoot, nil
	default:
		return HRuleTop, NewRenderError(CodeInvalidStyle, "unknown horizontal rule", s)
	}
}

// ParseVRule 解析 left/middle/right。
func ParseVRule(s string) (VRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return VRuleLeft, nil
	case "middle":
		return VRuleMiddle, nil
	case "right":
		return VRuleRight, nil
	default:
		return VRuleLeft, NewRenderError(CodeInvalidStyle, "unknown vertical rule", s)
	}
}

// DefaultPadding 是每侧 2 个单位的内边距。
const DefaultPadding = 2.0

// TableStyle 描述表格的列、单元格样式、内边距、宽度策略与规则线。
// 只能通过 TableOption 修改。
type TableStyle struct {
	columns     []string
	padding     Padding
	skip        Edges
	tableWidth  WidthPolicy
	width       float64
	columnWidth WidthPolicy
	colWidth    float64
	cells       [3]map[string]TextStyle
	hrules      [hruleCount]*LineStyle
	vrules      [vruleCount]*LineStyle
}

// TableOption 是对 TableStyle 的一次修改。
type TableOption func(*TableStyle) error

// NewTableStyle 为给定列创建默认样式并依次应用 opts。
func NewTableStyle(columns []string, opts ...TableOption) (*TableStyle, error) {
	if len(columns) == 0 {
		return nil, NewRenderError(CodeInvalidStyle, "table needs at least one column")
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, NewRenderError(CodeInvalidStyle, "duplicate column", c)
		}
		seen[c] = true
	}
	ts := &TableStyle{
		columns: slices.Clone(columns),
		padding: Padding{Left: DefaultPadding, Right: DefaultPadding, Top: DefaultPadding, Bottom: DefaultPadding},
	}
	for p := range ts.cells {
		ts.cells[p] = make(map[string]TextStyle, len(columns))
		for _, c := range columns {
			ts.cells[p][c] = DefaultTextStyle()
		}
	}
	if err := ts.Apply(opts...); err != nil {
		return nil, err
	}
	return ts, nil
}

// Apply 依次应用 opts，任一失败时样式保持不变。
func (ts *TableStyle) Apply(opts ...TableOption) error {
	next := ts.Clone()
	for _, opt := range opts {
		if err := opt(next); err != nil {
			return err
		}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*ts = *next
	return nil
}

// Validate 检查宽度策略组合与数值。
func (ts *TableStyle) Validate() error {
	if len(ts.columns) == 0 {
		return NewRenderError(CodeInvalidStyle, "table needs at least one column")
	}
	if ts.tableWidth == WidthFixed && ts.columnWidth == WidthFixed {
		return NewRenderError(CodeInvalidStyle, "table width and column width cannot both be fixed")
	}
	if ts.tableWidth == WidthEqual {
		return NewRenderError(CodeInvalidStyle, "table width policy must be auto or fixed")
	}
	if ts.tableWidth == WidthFixed && ts.width <= 0 {
		return NewRenderError(CodeInvalidStyle, "fixed table width must be positive", ts.width)
	}
	if ts.columnWidth == WidthFixed && ts.colWidth <= 0 {
		return NewRenderError(CodeInvalidStyle, "fixed column width must be positive", ts.colWidth)
	}
	p := ts.padding
	if p.Left < 0 || p.Right < 0 || p.Top < 0 || p.Bottom < 0 {
		return NewRenderError(CodeInvalidStyle, "padding must not be negative", p)
	}
	return nil
}

// Clone 返回深拷贝。
func (ts *TableStyle) Clone() *TableStyle {
	c := *ts
	c.columns = slices.Clone(ts.columns)
	for p := range ts.cells {
		c.cells[p] = make(map[string]TextStyle, len(ts.cells[p]))
		for k, v := range ts.cells[p] {
			c.cells[p][k] = v
		}
	}
	for i, ls := range ts.hrules {
		if ls != nil {
			v := ls.clone()
			c.hrules[i] = &v
		}
	}
	for i, ls := range ts.vrules {
		if ls != nil {
			v := ls.clone()
			c.vrules[i] = &v
		}
	}
	return &c
}

func (ts *TableStyle) Columns() []string                   { return slices.Clone(ts.columns) }
func (ts *TableStyle) Padding() Padding                    { return ts.padding }
func (ts *TableStyle) Skip() Edges                         { return ts.skip }
func (ts *TableStyle) TableWidth() (WidthPolicy, float64)  { return ts.tableWidth, ts.width }
func (ts *TableStyle) ColumnWidth() (WidthPolicy, float64) { return ts.columnWidth, ts.colWidth }

// CellStyle 返回某部分某列的文本样式。
func (ts *TableStyle) CellStyle(part Part, column string) TextStyle {
	return ts.cells[part][column]
}

// HRuleStyle 返回某位置的水平规则线样式。
func (ts *TableStyle) HRuleStyle(pos HRule) (LineStyle, bool) {
	if ls := ts.hrules[pos]; ls != nil {
		return *ls, true
	}
	return LineStyle{}, false
}

// VRuleStyle 返回某位置的垂直规则线样式。
func (ts *TableStyle) VRuleStyle(pos VRule) (LineStyle, bool) {
	if ls := ts.vrules[pos]; ls != nil {
		return *ls, true
	}
	return LineStyle{}, false
}

func allSides(sides []Side) []Side {
	if len(sides) == 0 {
		return []Side{SideLeft, SideRight, SideTop, SideBottom}
	}
	return sides
}

// WithPadding 设置指定侧（默认四侧）的内边距。
func WithPadding(pad float64, sides ...Side) TableOption {
	return func(ts *TableStyle) error {
		for _, s := range allSides(sides) {
			switch s {
			case SideLeft:
				ts.padding.Left = pad
			case SideRight:
				ts.padding.Right = pad
			case SideTop:
				ts.padding.Top = pad
			case SideBottom:
				ts.padding.Bottom = pad
			}
		}
		return nil
	}
}

// WithSkipPadding 设置表格外缘是否省略指定侧（默认四侧）的内边距。
func WithSkipPadding(skip bool, sides ...Side) TableOption {
	return func(ts *TableStyle) error {
		for _, s := range allSides(sides) {
			switch s {
			case SideLeft:
				ts.skip.Left = skip
			case SideRight:
				ts.skip.Right = skip
			case SideTop:
				ts.skip.Top = skip
			case SideBottom:
				ts.skip.Bottom = skip
			}
		}
		return nil
	}
}

// WithTableWidth 设置表格宽度策略，fixed 时 width 为总宽。
func WithTableWidth(policy WidthPolicy, width float64) TableOption {
	return func(ts *TableStyle) error {
		if policy == WidthFixed && ts.columnWidth == WidthFixed {
			return NewRenderError(CodeInvalidStyle, "table width and column width cannot both be fixed")
		}
		ts.tableWidth = policy
		ts.width = width
		return nil
	}
}

// WithColumnWidth 设置列宽策略，fixed 时 width 为每列宽度。
func WithColumnWidth(policy WidthPolicy, width float64) TableOption {
	return func(ts *TableStyle) error {
		if policy == WidthFixed && ts.tableWidth == WidthFixed {
			return NewRenderError(CodeInvalidStyle, "table width and column width cannot both be fixed")
		}
		ts.columnWidth = policy
		ts.colWidth = width
		return nil
	}
}

func (ts *TableStyle) hasColumn(col string) error {
	if !slices.Contains(ts.columns, col) {
		return NewRenderError(CodeInvalidStyle, "unknown column", col)
	}
	return nil
}

// WithCellStyle 将所有单元格设为 style。
func WithCellStyle(style TextStyle) TableOption {
	return func(ts *TableStyle) error {
		for p := range ts.cells {
			for _, c := range ts.columns {
				ts.cells[p][c] = style
			}
		}
		return nil
	}
}

// WithColumnStyle 将某列在所有部分中的单元格设为 style。
func WithColumnStyle(col string, style TextStyle) TableOption {
	return func(ts *TableStyle) error {
		if err := ts.hasColumn(col); err != nil {
			return err
		}
		for p := range ts.cells {
			ts.cells[p][col] = style
		}
		return nil
	}
}

// WithPartStyle 将某部分的所有单元格设为 style。
func WithPartStyle(part Part, style TextStyle) TableOption {
	return func(ts *TableStyle) error {
		for _, c := range ts.columns {
			ts.cells[part][c] = style
		}
		return nil
	}
}

// WithColumnUpdate 对某列所有单元格的样式逐个应用 updates。
func WithColumnUpdate(col string, updates ...TextUpdate) TableOption {
	return func(ts *TableStyle) error {
		if err := ts.hasColumn(col); err != nil {
			return err
		}
		for p := range ts.cells {
			ts.cells[p][col] = applyUpdates(ts.cells[p][col], updates)
		}
		return nil
	}
}

// WithPartUpdate 对某部分所有单元格的样式逐个应用 updates。
func WithPartUpdate(part Part, updates ...TextUpdate) TableOption {
	return func(ts *TableStyle) error {
		for _, c := range ts.columns {
			ts.cells[part][c] = applyUpdates(ts.cells[part][c], updates)
		}
		return nil
	}
}

func applyUpdates(style TextStyle, updates []TextUpdate) TextStyle {
	for _, u := range updates {
		u(&style)
	}
	return style
}

// WithHRule 为指定位置（默认全部）设置水平规则线。
func WithHRule(ls LineStyle, positions ...HRule) TableOption {
	return func(ts *TableStyle) error {
		if err := ls.Validate(); err != nil {
			return err
		}
		if len(positions) == 0 {
			positions = []HRule{HRuleTop, HRuleMiddle, HRuleBottom, HRuleHead, HRuleFoot}
		}
		for _, p := range positions {
			v := ls.clone()
			ts.hrules[p] = &v
		}
		return nil
	}
}

// WithVRule 为指定位置（默认全部）设置垂直规则线。
func WithVRule(ls LineStyle, positions ...VRule) TableOption {
	return func(ts *TableStyle) error {
		if err := ls.Validate(); err != nil {
			return err
		}
		if len(positions) == 0 {
			positions = []VRule{VRuleLeft, VRuleMiddle, VRuleRight}
		}
		for _, p := range positions {
			v := ls.clone()
			ts.vrules[p] = &v
		}
		return nil
	}
}
