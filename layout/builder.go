package layout

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/binding"
	"github.com/ByLCY/quire/dsl"
)

// Build 根据 DSL AST 构建可分页的文档；${path} 占位符从 data 中取值。
// 图片在构建时载入，文本与表格在 Paginate 时测量。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	styles, err := collectStyles(doc)
	if err != nil {
		return nil, err
	}
	pages := doc.Pages()
	switch len(pages) {
	case 0:
		return nil, fmt.Errorf("文档中缺少 page 段落")
	case 1:
	default:
		return nil, fmt.Errorf("文档只能包含一个 page 段落，实际 %d 个", len(pages))
	}

	b := &builder{styles: styles, data: data, opts: opts}
	out, err := b.page(pages[0])
	if err != nil {
		return nil, err
	}
	out.SetMeta(collectMeta(doc, data))
	return out, nil
}

type builder struct {
	styles *styleSet
	data   any
	opts   BuildOptions
	doc    *Document
}

// interpolate 替换占位符，插入的数据按纯文本转义。
func (b *builder) interpolate(text string) string {
	return binding.InterpolateFunc(text, b.data, EscapeMarkup)
}

func (b *builder) page(section *dsl.PageSection) (*Document, error) {
	width, height, err := resolvePageSize(section.Spec)
	if err != nil {
		return nil, err
	}
	margin, err := resolveMargin(section.Spec.Params)
	if err != nil {
		return nil, err
	}
	doc, err := NewDocument(width, height, margin)
	if err != nil {
		return nil, err
	}
	b.doc = doc

	params := section.Spec.Params
	for i := 0; i < len(params); i++ {
		switch params[i].Value {
		case "numbers":
			if i+1 >= len(params) {
				return nil, fmt.Errorf("%s: numbers 缺少格式", params[i].Pos)
			}
			style := DefaultTextStyle()
			if i+2 < len(params) && params[i+2].Value == "style" && i+3 < len(params) {
				if style, err = b.styles.textStyle(params[i+3].Value); err != nil {
					return nil, err
				}
			}
			doc.SetPageNumbers(params[i+1].Value, style)
			i++
		case "spacing":
			if i+1 >= len(params) {
				return nil, fmt.Errorf("%s: spacing 缺少数值", params[i].Pos)
			}
			l, err := ParseLength(params[i+1].Value)
			if err != nil {
				return nil, err
			}
			doc.SetSpacing(l.ToMM(doc.ContentHeight()))
			i++
		}
	}

	if section.Block == nil {
		return nil, fmt.Errorf("page 段落缺少内容")
	}
	for _, cmd := range section.Block.Commands() {
		if err := b.command(cmd); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", cmd.Pos, cmd.Name, err)
		}
	}
	return doc, nil
}

// command 处理 page 内的一条指令：text、rule、image、table、break。
func (b *builder) command(cmd *dsl.Command) error {
	switch cmd.Name {
	case "text":
		return b.text(cmd)
	case "rule":
		return b.rule(cmd)
	case "image":
		return b.image(cmd)
	case "table":
		return b.table(cmd)
	case "break":
		b.doc.AddBreak()
		return nil
	default:
		return fmt.Errorf("未知指令")
	}
}

func (b *builder) text(cmd *dsl.Command) error {
	name, attrs := parseArgs(cmd.Args, true)
	style, err := b.styles.textStyle(name)
	if err != nil {
		return err
	}
	if style, err = b.styles.applyText(style, attrs, b.doc.ContentWidth()); err != nil {
		return err
	}
	b.doc.AddText(b.interpolate(cmd.Block.Text()), style)
	return nil
}

func (b *builder) rule(cmd *dsl.Command) error {
	name, attrs := parseArgs(cmd.Args, true)
	style, err := b.styles.lineStyle(name)
	if err != nil {
		return err
	}
	if style, err = b.styles.applyLine(style, attrs); err != nil {
		return err
	}
	delta := Point{X: b.doc.ContentWidth()}
	if _, vertical := attrs["dy"]; vertical {
		delta.X = 0
	}
	for key, val := range attrs {
		var target *float64
		switch key {
		case "length", "dx":
			target = &delta.X
		case "dy":
			target = &delta.Y
		default:
			continue
		}
		l, err := ParseLength(val)
		if err != nil {
			return err
		}
		*target = l.ToMM(b.doc.ContentWidth())
	}
	blk, err := NewRuleBlock(style, delta)
	if err != nil {
		return err
	}
	b.doc.AddBlock("rule", blk)
	return nil
}

func (b *builder) image(cmd *dsl.Command) error {
	_, attrs := parseArgs(cmd.Args, false)
	src := attrs["src"]
	if src == "" {
		return fmt.Errorf("image 缺少 src")
	}
	style := ImageStyle{Width: b.doc.ContentWidth(), Height: b.doc.ContentHeight() / 4}
	for key, val := range attrs {
		switch key {
		case "width", "height":
			l, err := ParseLength(val)
			if err != nil {
				return err
			}
			if key == "width" {
				style.Width = l.ToMM(b.doc.ContentWidth())
			} else {
				style.Height = l.ToMM(b.doc.ContentHeight())
			}
		case "center":
			v, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("center 取值 %q 无法解析: %w", val, err)
			}
			style.Center = v
		case "dpu", "dots-per-unit":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("dpu 取值 %q 无法解析: %w", val, err)
			}
			style.DotsPerUnit = v
		}
	}
	path := binding.Interpolate(src, b.data)
	if !filepath.IsAbs(path) && b.opts.BaseDir != "" {
		path = filepath.Join(b.opts.BaseDir, path)
	}
	blk, err := LoadImage(path, style)
	if err != nil {
		return err
	}
	b.doc.AddBlock("image", blk)
	return nil
}

func (b *builder) table(cmd *dsl.Command) error {
	name, attrs := parseArgs(cmd.Args, true)
	repeat := false
	if v, ok := attrs["repeat-header"]; ok {
		var err error
		if repeat, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("repeat-header 取值 %q 无法解析: %w", v, err)
		}
	}
	cmds := cmd.Block.Commands()

	var columns []string
	for _, c := range cmds {
		if c.Name == "columns" {
			columns = append(columns, c.ArgValues()...)
		}
	}
	var opts []TableOption
	if name != "" {
		base, err := b.styles.textStyle(name)
		if err != nil {
			return err
		}
		opts = append(opts, WithCellStyle(base))
	}

	var rows [3][]Row
	for _, c := range cmds {
		switch c.Name {
		case "columns":
		case "head", "row", "foot":
			part := PartBody
			if c.Name != "row" {
				part, _ = ParsePart(c.Name)
			}
			rows[part] = append(rows[part], b.literalRow(c.Block))
		case "rows":
			if len(c.Args) == 0 {
				return fmt.Errorf("%s: rows 缺少数据路径", c.Pos)
			}
			path, part, err := rowsTarget(c.Args)
			if err != nil {
				return err
			}
			data, err := binding.Rows(b.data, path)
			if err != nil {
				return err
			}
			for _, d := range data {
				rows[part] = append(rows[part], dataRow(d))
			}
		default:
			opt, err := b.tableOption(c)
			if err != nil {
				return fmt.Errorf("%s: %s: %w", c.Pos, c.Name, err)
			}
			opts = append(opts, opt)
		}
	}

	style, err := NewTableStyle(columns, opts...)
	if err != nil {
		return err
	}
	b.doc.AddTable(style, rows[PartHead], rows[PartBody], rows[PartFoot], repeat)
	return nil
}

// rowsTarget 解析 "rows items.list [part head]"。
func rowsTarget(args []*dsl.Lexeme) (string, Part, error) {
	part := PartBody
	end := len(args)
	for i, a := range args {
		if a.Value == "part" && i+1 < len(args) {
			p, err := ParsePart(args[i+1].Value)
			if err != nil {
				return "", part, err
			}
			part, end = p, i
			break
		}
	}
	return dsl.JoinRaw(args[:end]), part, nil
}

func (b *builder) literalRow(block *dsl.Block) Row {
	row := Row{}
	for _, a := range block.Assignments() {
		if a.Value.String != nil {
			row[a.Key] = b.interpolate(string(*a.Value.String))
			continue
		}
		row[a.Key] = EscapeMarkup(a.Value.Scalar())
	}
	return row
}

// dataRow 将数据中的字符串视为纯文本。
func dataRow(d map[string]any) Row {
	row := make(Row, len(d))
	for k, v := range d {
		if s, ok := v.(string); ok {
			v = EscapeMarkup(s)
		}
		row[k] = v
	}
	return row
}

// tableOption 将表格内的样式指令映射为 TableOption。
func (b *builder) tableOption(c *dsl.Command) (TableOption, error) {
	args := c.ArgValues()
	switch c.Name {
	case "width", "column-width":
		if len(args) == 0 {
			return nil, fmt.Errorf("缺少宽度策略")
		}
		policy, err := ParseWidthPolicy(args[0])
		if err != nil {
			return nil, err
		}
		value := 0.0
		if len(args) > 1 {
			l, err := ParseLength(args[1])
			if err != nil {
				return nil, err
			}
			value = l.ToMM(b.doc.ContentWidth())
		}
		if c.Name == "width" {
			return WithTableWidth(policy, value), nil
		}
		return WithColumnWidth(policy, value), nil
	case "padding":
		if len(args) == 0 {
			return nil, fmt.Errorf("缺少内边距")
		}
		l, err := ParseLength(args[0])
		if err != nil {
			return nil, err
		}
		sides, err := parseSides(args[1:])
		if err != nil {
			return nil, err
		}
		return WithPadding(l.ToMM(0), sides...), nil
	case "skip-padding":
		skip := true
		if len(args) > 0 {
			if v, err := strconv.ParseBool(args[0]); err == nil {
				skip, args = v, args[1:]
			}
		}
		sides, err := parseSides(args)
		if err != nil {
			return nil, err
		}
		return WithSkipPadding(skip, sides...), nil
	case "hline", "vline":
		if len(args) == 0 {
			return nil, fmt.Errorf("缺少线型")
		}
		ls, err := b.styles.lineStyle(args[0])
		if err != nil {
			return nil, err
		}
		if c.Name == "hline" {
			var pos []HRule
			for _, a := range args[1:] {
				p, err := ParseHRule(a)
				if err != nil {
					return nil, err
				}
				pos = append(pos, p)
			}
			return WithHRule(ls, pos...), nil
		}
		var pos []VRule
		for _, a := range args[1:] {
			p, err := ParseVRule(a)
			if err != nil {
				return nil, err
			}
			pos = append(pos, p)
		}
		return WithVRule(ls, pos...), nil
	case "style":
		if len(args) == 0 {
			return nil, fmt.Errorf("缺少样式名")
		}
		ts, err := b.styles.textStyle(args[0])
		if err != nil {
			return nil, err
		}
		kind, target := scopeOf(args[1:])
		switch kind {
		case "part":
			p, err := ParsePart(target)
			if err != nil {
				return nil, err
			}
			return WithPartStyle(p, ts), nil
		case "column":
			return WithColumnStyle(target, ts), nil
		default:
			return WithCellStyle(ts), nil
		}
	case "set":
		if len(args) < 2 {
			return nil, fmt.Errorf("set 需要属性名与取值")
		}
		value := args[1]
		if c, ok := b.styles.colors[value]; ok {
			value = c
		}
		upd, err := ParseTextUpdate(args[0], value)
		if err != nil {
			return nil, err
		}
		kind, target := scopeOf(args[2:])
		switch kind {
		case "part":
			p, err := ParsePart(target)
			if err != nil {
				return nil, err
			}
			return WithPartUpdate(p, upd), nil
		case "column":
			return WithColumnUpdate(target, upd), nil
		default:
			return func(ts *TableStyle) error {
				for p := PartHead; p <= PartFoot; p++ {
					if err := WithPartUpdate(p, upd)(ts); err != nil {
						return err
					}
				}
				return nil
			}, nil
		}
	default:
		return nil, fmt.Errorf("未知的表格指令")
	}
}

// scopeOf 解析 "part head" 或 "column qty" 形式的作用范围。
func scopeOf(args []string) (string, string) {
	if len(args) >= 2 && (args[0] == "part" || args[0] == "column") {
		return args[0], args[1]
	}
	return "", ""
}

func parseSides(args []string) ([]Side, error) {
	var sides []Side
	for _, a := range args {
		s, err := ParseSide(a)
		if err != nil {
			return nil, err
		}
		sides = append(sides, s)
	}
	return sides, nil
}

// styleSet 是 styles 段落解析后的命名样式。
type styleSet struct {
	colors map[string]string
	text   map[string]TextStyle
	lines  map[string]LineStyle
}

// styleDef 是尚未处理继承的样式定义。
type styleDef struct {
	kind    string
	name    string
	extends string
	props   map[string]string
}

func collectStyles(doc *dsl.Document) (*styleSet, error) {
	set := &styleSet{
		colors: map[string]string{},
		text:   map[string]TextStyle{},
		lines:  map[string]LineStyle{},
	}
	raw := map[string]styleDef{}
	for _, section := range doc.Sections {
		if section.Styles == nil {
			continue
		}
		for _, cmd := range section.Styles.Block.Commands() {
			switch cmd.Name {
			case "color":
				name, value := parseColorResource(cmd)
				if name == "" || value == "" {
					return nil, fmt.Errorf("%s: color 定义不完整", cmd.Pos)
				}
				if _, err := ParseColor(value); err != nil {
					return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
				}
				set.colors[name] = value
			case "text", "line":
				def := parseStyleDef(cmd)
				if def.name == "" {
					return nil, fmt.Errorf("%s: %s 样式缺少名称", cmd.Pos, cmd.Name)
				}
				if _, dup := raw[def.name]; dup {
					return nil, fmt.Errorf("%s: 样式 %s 重复定义", cmd.Pos, def.name)
				}
				raw[def.name] = def
			default:
				return nil, fmt.Errorf("%s: styles 不支持 %s", cmd.Pos, cmd.Name)
			}
		}
	}

	resolved, err := resolveStyles(raw)
	if err != nil {
		return nil, err
	}
	for name, def := range resolved {
		switch def.kind {
		case "text":
			ts, err := set.applyText(DefaultTextStyle(), def.props, 0)
			if err != nil {
				return nil, fmt.Errorf("样式 %s: %w", name, err)
			}
			set.text[name] = ts
		case "line":
			ls, err := set.applyLine(DefaultLineStyle(), def.props)
			if err != nil {
				return nil, fmt.Errorf("样式 %s: %w", name, err)
			}
			set.lines[name] = ls
		}
	}
	return set, nil
}

func (s *styleSet) textStyle(name string) (TextStyle, error) {
	if name == "" {
		return DefaultTextStyle(), nil
	}
	ts, ok := s.text[name]
	if !ok {
		return TextStyle{}, fmt.Errorf("文本样式 %s 未定义", name)
	}
	return ts, nil
}

func (s *styleSet) lineStyle(name string) (LineStyle, error) {
	if name == "" {
		return DefaultLineStyle(), nil
	}
	ls, ok := s.lines[name]
	if !ok {
		return LineStyle{}, fmt.Errorf("线型 %s 未定义", name)
	}
	return ls, nil
}

// applyText 把属性表应用到文本样式上；width 为最大宽度，其余交给 ParseTextUpdate。
func (s *styleSet) applyText(style TextStyle, props map[string]string, reference float64) (TextStyle, error) {
	for _, key := range sortedKeys(props) {
		value := props[key]
		switch key {
		case "width", "max-width":
			l, err := ParseLength(value)
			if err != nil {
				return style, err
			}
			style.MaxWidth = l.ToMM(reference)
			continue
		case "color":
			if c, ok := s.colors[value]; ok {
				value = c
			}
		case "length", "dx", "dy", "repeat-header":
			continue
		}
		upd, err := ParseTextUpdate(key, value)
		if err != nil {
			return style, err
		}
		upd(&style)
	}
	return style, style.Validate()
}

// applyLine 把 width/pattern/color/gap 应用到线型上，其余属性忽略。
func (s *styleSet) applyLine(style LineStyle, props map[string]string) (LineStyle, error) {
	for _, key := range sortedKeys(props) {
		value := props[key]
		switch key {
		case "width":
			l, err := ParseLength(value)
			if err != nil {
				return style, err
			}
			style.Width = l.ToMM(0)
		case "pattern":
			p, err := ParseLinePattern(value)
			if err != nil {
				return style, err
			}
			style.Pattern = p
		case "color":
			if c, ok := s.colors[value]; ok {
				value = c
			}
			c, err := ParseColor(value)
			if err != nil {
				return style, err
			}
			style.Color = c
		case "gap":
			l, err := ParseLength(value)
			if err != nil {
				return style, err
			}
			style = style.WithGap(l.ToMM(0))
		}
	}
	return style, style.Validate()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func parseStyleDef(cmd *dsl.Command) styleDef {
	if len(cmd.Args) == 0 {
		return styleDef{}
	}
	def := styleDef{kind: cmd.Name, name: cmd.Args[0].Value, props: map[string]string{}}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		def.extends = cmd.Args[2].Value
	}
	for _, a := range cmd.Block.Assignments() {
		if val := a.Value.Scalar(); val != "" {
			def.props[a.Key] = val
		}
	}
	return def
}

// resolveStyles 展开 extends 继承链，检测未定义与循环。
func resolveStyles(styles map[string]styleDef) (map[string]styleDef, error) {
	resolved := map[string]styleDef{}
	visiting := map[string]bool{}

	var dfs func(name string) (styleDef, error)
	dfs = func(name string) (styleDef, error) {
		if def, ok := resolved[name]; ok {
			return def, nil
		}
		def, ok := styles[name]
		if !ok {
			return styleDef{}, fmt.Errorf("样式 %s 未定义", name)
		}
		if visiting[name] {
			return styleDef{}, fmt.Errorf("样式继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if def.extends != "" {
			parent, err := dfs(def.extends)
			if err != nil {
				return styleDef{}, err
			}
			if parent.kind != def.kind {
				return styleDef{}, fmt.Errorf("样式 %s 不能继承不同类型的 %s", name, def.extends)
			}
			for k, v := range parent.props {
				props[k] = v
			}
		}
		for k, v := range def.props {
			props[k] = v
		}
		def.props = props
		resolved[name] = def
		delete(visiting, name)
		return def, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

func collectMeta(doc *dsl.Document, data any) DocumentMeta {
	meta := DocumentMeta{Creator: "quire"}
	for _, section := range doc.Sections {
		if section.Meta == nil {
			continue
		}
		for _, a := range section.Meta.Block.Assignments() {
			value := binding.Interpolate(a.Value.Scalar(), data)
			switch strings.ToLower(a.Key) {
			case "title":
				meta.Title = value
			case "author":
				meta.Author = value
			case "subject":
				meta.Subject = value
			case "creator":
				meta.Creator = value
			case "keywords":
				meta.Keywords = a.Value.Strings()
			}
		}
	}
	return meta
}

var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

func resolvePageSize(spec dsl.PageSpec) (float64, float64, error) {
	base, ok := pagePresets[strings.ToUpper(spec.Size)]
	if !ok {
		return 0, 0, fmt.Errorf("暂不支持的纸张尺寸：%s", spec.Size)
	}
	width, height := base[0], base[1]
	for _, token := range spec.Params {
		if token.Value == "landscape" {
			width, height = height, width
		}
	}
	return width, height, nil
}

// resolveMargin 按 CSS 规则解析 margin 之后的 1 到 4 个长度，默认四边 20mm。
func resolveMargin(params []*dsl.Lexeme) (Margin, error) {
	margin := Margin{Top: 20, Right: 20, Bottom: 20, Left: 20}
	for i, token := range params {
		if token.Value != "margin" {
			continue
		}
		var vals []float64
		for j := i + 1; j < len(params) && len(vals) < 4; j++ {
			l, err := ParseLength(params[j].Value)
			if err != nil {
				break
			}
			vals = append(vals, l.ToMM(0))
		}
		switch len(vals) {
		case 0:
			return margin, fmt.Errorf("%s: margin 缺少长度", token.Pos)
		case 1:
			v := vals[0]
			margin = Margin{Top: v, Right: v, Bottom: v, Left: v}
		case 2:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
		case 3:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
		default:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
		}
	}
	return margin, nil
}

// parseArgs 解析 "[Style] key value key value ..." 形式的参数。
func parseArgs(args []*dsl.Lexeme, allowStyle bool) (string, map[string]string) {
	result := map[string]string{}
	cursor := 0
	var style string
	if allowStyle && len(args)%2 == 1 && args[0].Type == "Ident" {
		style = args[0].Value
		cursor = 1
	}
	for cursor < len(args)-1 {
		result[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return style, result
}
