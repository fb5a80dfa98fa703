package layout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const blockSpacing = 3.0

// Margin 是页面四周的留白（mm）。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// Placed 是放置在页面上的块，坐标相对页面左上角。
type Placed struct {
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Text  string  `json:"text,omitempty"`
	Block Block   `json:"-"`
}

// Page 是分页后的一页。
type Page struct {
	Index int      `json:"index"`
	Items []Placed `json:"items"`
}

// element 是文档中待分页的内容；文本与表格需要在分页时才能测量。
type element interface {
	place(p *paginator) error
}

// Document 按顺序收集内容，并在 Paginate 时把它们流式排入固定尺寸的页面。
// 实现 Pager。
type Document struct {
	width, height float64
	margin        Margin
	spacing       float64
	meta          DocumentMeta
	elements      []element
	numbers       string
	numberStyle   TextStyle
	pages         []Page
	paginated     bool
}

// NewDocument 创建给定页面尺寸与页边距的文档。
func NewDocument(width, height float64, margin Margin) (*Document, error) {
	if width <= 0 || height <= 0 {
		return nil, NewRenderError(CodeInvalidStyle, "page size must be positive", width, height)
	}
	if margin.Left+margin.Right >= width || margin.Top+margin.Bottom >= height {
		return nil, NewRenderError(CodeInvalidStyle, "margins leave no content area", margin)
	}
	return &Document{width: width, height: height, margin: margin, spacing: blockSpacing}, nil
}

func (d *Document) PageSize() (float64, float64) { return d.width, d.height }
func (d *Document) Margin() Margin               { return d.margin }
func (d *Document) Meta() DocumentMeta           { return d.meta }
func (d *Document) SetMeta(m DocumentMeta)       { d.meta = m }

// ContentWidth 与 ContentHeight 返回去掉页边距后的内容区尺寸。
func (d *Document) ContentWidth() float64  { return d.width - d.margin.Left - d.margin.Right }
func (d *Document) ContentHeight() float64 { return d.height - d.margin.Top - d.margin.Bottom }

// SetSpacing 设置相邻块之间的垂直间距。
func (d *Document) SetSpacing(v float64) {
	d.spacing = max(v, 0)
	d.paginated = false
}

// SetPageNumbers 在每页底部页边距中居中绘制页码，format 中的 {page} 与 {pages} 会被替换。
func (d *Document) SetPageNumbers(format string, style TextStyle) {
	d.numbers = format
	d.numberStyle = style
	d.paginated = false
}

// AddText 追加一段流式文本；style.MaxWidth 为 0 时按内容区宽度折行。
func (d *Document) AddText(text string, style TextStyle) {
	d.add(textElement{text: text, style: style})
}

// AddTable 追加一张表格，跨页时 repeatHeader 决定是否重复表头。
func (d *Document) AddTable(style *TableStyle, head, body, foot []Row, repeatHeader bool) {
	d.add(tableElement{style: style.Clone(), head: head, body: body, foot: foot, repeatHeader: repeatHeader})
}

// AddBlock 追加一个已构建的块（图片、规则线等），放不下时移到下一页。
func (d *Document) AddBlock(kind string, b Block) {
	d.add(blockElement{kind: kind, block: b})
}

// AddBreak 强制分页。
func (d *Document) AddBreak() {
	d.add(breakElement{})
}

func (d *Document) add(e element) {
	d.elements = append(d.elements, e)
	d.paginated = false
}

// Pages 返回最近一次分页的结果。
func (d *Document) Pages() []Page { return d.pages }

// Paginate 使用 ts 测量并分页，返回页数；没有任何页面时返回 NO_PAGES。
func (d *Document) Paginate(ts Typesetter) (int, error) {
	if ts == nil {
		return 0, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	d.pages, d.paginated = nil, false
	p := &paginator{doc: d, ts: ts}
	for i, e := range d.elements {
		if err := e.place(p); err != nil {
			return 0, fmt.Errorf("排版第 %d 个元素失败: %w", i+1, err)
		}
	}
	if len(p.pages) == 0 {
		return 0, NewRenderError(CodeEmptyDocument)
	}
	if d.numbers != "" {
		if err := d.placeNumbers(ts, p.pages); err != nil {
			return 0, err
		}
	}
	d.pages, d.paginated = p.pages, true
	Logger().Debug("分页完成", zap.Int("pages", len(d.pages)), zap.Int("elements", len(d.elements)))
	return len(d.pages), nil
}

// DrawPage 绘制第 index 页，origin 为页面左上角的绝对坐标。
func (d *Document) DrawPage(s Surface, index int, origin Point) error {
	if !d.paginated {
		return fmt.Errorf("layout: 绘制前需要先调用 Paginate")
	}
	if index < 0 || index >= len(d.pages) {
		return fmt.Errorf("layout: 页码 %d 超出范围 [0, %d)", index, len(d.pages))
	}
	for _, it := range d.pages[index].Items {
		if err := it.Block.Draw(s, origin.X+it.X, origin.Y+it.Y); err != nil {
			return fmt.Errorf("绘制第 %d 页的 %s 失败: %w", index+1, it.Kind, err)
		}
	}
	return nil
}

// PageLabel 按页码格式生成第 index 页（从 0 开始）的文本。
func PageLabel(format string, index, total int) string {
	r := strings.NewReplacer("{page}", strconv.Itoa(index+1), "{pages}", strconv.Itoa(total))
	return r.Replace(format)
}

func (d *Document) placeNumbers(ts Typesetter, pages []Page) error {
	style := d.numberStyle
	style.MaxWidth = d.ContentWidth()
	style.Align = AlignCenter
	for i := range pages {
		blk, err := NewTextBlock(ts, PageLabel(d.numbers, i, len(pages)), style)
		if err != nil {
			return err
		}
		y := d.height - d.margin.Bottom + (d.margin.Bottom-blk.Height())/2
		pages[i].Items = append(pages[i].Items, Placed{
			Kind: "page-number", X: d.margin.Left, Y: y, W: blk.Width(), H: blk.Height(), Text: blk.Text(), Block: blk,
		})
	}
	return nil
}

// paginator 记录当前页与内容区内的纵向游标。
// 分页符只标记 pending，真正有内容放入时才开新页，因此不会产生空白页。
type paginator struct {
	doc     *Document
	ts      Typesetter
	pages   []Page
	cursor  float64
	pending bool
}

// fresh 表示接下来的块会放在一张空页的顶部。
func (p *paginator) fresh() bool {
	return p.pending || len(p.pages) == 0 || len(p.pages[len(p.pages)-1].Items) == 0
}

// available 是当前页剩余的高度（已扣除块间距）。
func (p *paginator) available() float64 {
	if p.fresh() {
		return p.doc.ContentHeight()
	}
	return max(p.doc.ContentHeight()-p.cursor-p.doc.spacing, 0)
}

func (p *paginator) newPage() {
	p.pages = append(p.pages, Page{Index: len(p.pages)})
	p.cursor = 0
	p.pending = false
}

func (p *paginator) put(kind string, b Block) {
	if len(p.pages) == 0 || p.pending {
		p.newPage()
	}
	if !p.fresh() {
		p.cursor += p.doc.spacing
	}
	item := Placed{
		Kind:  kind,
		X:     p.doc.margin.Left,
		Y:     p.doc.margin.Top + p.cursor,
		W:     b.Width(),
		H:     b.Height(),
		Block: b,
	}
	if tb, ok := b.(*TextBlock); ok {
		item.Text = tb.Text()
	}
	page := &p.pages[len(p.pages)-1]
	page.Items = append(page.Items, item)
	p.cursor += b.Height()
}

// putPieces 把拆分结果依次放入当前页与后续新页。
func (p *paginator) putPieces(kind string, pieces []Block) {
	for i, b := range pieces {
		if i > 0 {
			p.newPage()
		}
		p.put(kind, b)
	}
}

type textElement struct {
	text  string
	style TextStyle
}

func (e textElement) place(p *paginator) error {
	style := e.style
	if style.MaxWidth == 0 && style.Wrap != WrapNone {
		style.MaxWidth = p.doc.ContentWidth()
	}
	blk, err := NewTextBlock(p.ts, e.text, style)
	if err != nil {
		return err
	}
	pieces, err := blk.Split(p.available(), p.doc.ContentHeight())
	if err != nil {
		return err
	}
	if !p.fresh() && pieces[0].Height() > p.available()+epsilon {
		Logger().Debug("文本无法在当前页开始，换页", zap.Float64("available", p.available()))
		p.newPage()
		if pieces, err = blk.Split(p.doc.ContentHeight()); err != nil {
			return err
		}
	}
	p.putPieces("text", asBlocks(pieces))
	return nil
}

type tableElement struct {
	style            *TableStyle
	head, body, foot []Row
	repeatHeader     bool
}

func (e tableElement) place(p *paginator) error {
	tb, err := NewTableBlock(p.ts, e.style, e.head, e.body, e.foot)
	if err != nil {
		return err
	}
	pieces, err := tb.Split(e.repeatHeader, p.available(), p.doc.ContentHeight())
	if err != nil && !p.fresh() && (errors.Is(err, ErrTableTooTall) || errors.Is(err, ErrNoProgress)) {
		Logger().Debug("表格无法在当前页开始，换页", zap.Float64("available", p.available()))
		p.newPage()
		pieces, err = tb.Split(e.repeatHeader, p.doc.ContentHeight())
	}
	if err != nil {
		return err
	}
	p.putPieces("table", asBlocks(pieces))
	return nil
}

type blockElement struct {
	kind  string
	block Block
}

func (e blockElement) place(p *paginator) error {
	if !p.fresh() && e.block.Height() > p.available()+epsilon {
		p.newPage()
	}
	p.put(e.kind, e.block)
	return nil
}

type breakElement struct{}

func (breakElement) place(p *paginator) error {
	if !p.fresh() {
		p.pending = true
	}
	return nil
}

func asBlocks[T Block](items []T) []Block {
	out := make([]Block, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
