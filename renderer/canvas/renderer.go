package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"go.uber.org/zap"

	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
)

// Renderer draws paginated documents via github.com/tdewolff/canvas.
// It is also the Typesetter used to measure text, so measured widths
// and drawn glyphs come from the same font faces.
type Renderer struct {
	fonts *fonts.Registry

	fontMu       sync.Mutex
	fontFamilies map[fontKey]*canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

type fontKey struct {
	family string
	style  fonts.Style
}

// Options configures the canvas renderer.
type Options struct {
	// Fonts supplies font data; nil means the built-in Latin Modern families.
	Fonts *fonts.Registry
	// FontDir is scanned for additional .ttf/.otf files.
	FontDir string
}

// NewRenderer creates a renderer with the built-in fonts.
func NewRenderer() *Renderer {
	r, _ := NewRendererWithOptions(Options{})
	return r
}

// NewRendererWithOptions creates a renderer with the given font sources.
func NewRendererWithOptions(opts Options) (*Renderer, error) {
	reg := opts.Fonts
	if reg == nil {
		reg = fonts.NewRegistry()
	}
	if opts.FontDir != "" {
		if err := reg.LoadDir(opts.FontDir); err != nil {
			return nil, err
		}
	}
	return &Renderer{fonts: reg, fontFamilies: map[fontKey]*canvas.FontFamily{}}, nil
}

// Render paginates p and renders every page into a PDF byte slice.
func (r *Renderer) Render(p layout.Pager) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("缺少待渲染的文档")
	}
	n, err := p.Paginate(r)
	if err != nil {
		return nil, err
	}
	width, height := p.PageSize()

	var buf bytes.Buffer
	writer := pdf.New(&buf, width, height, nil)
	if src, ok := p.(renderer.MetaSource); ok {
		r.applyMeta(writer, src.Meta())
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			writer.NewPage(width, height)
		}
		c := canvas.New(width, height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := p.DrawPage(&pageSurface{r: r, ctx: ctx}, i, layout.Point{}); err != nil {
			return nil, err
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	layout.Logger().Debug("PDF 渲染完成", zap.Int("pages", n), zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// LayoutLines 实现 layout.Typesetter：按字体实际宽度折行，并用字体度量回填行高与上升部。
// 字号为 pt，宽度与行高为 mm。
func (r *Renderer) LayoutLines(runs []layout.Run, style layout.TextStyle) ([]layout.TextLine, error) {
	style = style.Resolved()
	var measureErr error
	measure := func(text string, s layout.TextStyle) float64 {
		face, err := r.fontFace(s)
		if err != nil {
			measureErr = err
			return 0
		}
		return face.TextWidth(text)
	}

	lines := layout.WrapRuns(runs, style, measure)
	if measureErr != nil {
		return nil, measureErr
	}
	base, err := r.fontFace(style)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		m := base.Metrics()
		height, ascent := m.LineHeight, m.Ascent
		for _, run := range lines[i].Runs {
			face, err := r.fontFace(run.Effective(style))
			if err != nil {
				return nil, err
			}
			rm := face.Metrics()
			height = math.Max(height, rm.LineHeight)
			ascent = math.Max(ascent, rm.Ascent)
		}
		lines[i].Height = height
		lines[i].Ascent = ascent
	}
	return lines, nil
}

func (r *Renderer) fontFace(style layout.TextStyle, decorators ...any) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily(style.Family, fonts.StyleOf(style.Bold, style.Italic))
	if err != nil {
		return nil, err
	}
	args := append([]any{colorFromLayout(style.Color), canvasStyle(style.Bold, style.Italic), canvas.FontNormal}, decorators...)
	return family.Face(style.Size, args...), nil
}

// ensureFontFamily 为每个族名与样式缓存一个 FontFamily；缺失的样式由注册表退回到可用的字形。
func (r *Renderer) ensureFontFamily(name string, style fonts.Style) (*canvas.FontFamily, error) {
	key := fontKey{family: strings.ToLower(name), style: style}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if fam, ok := r.fontFamilies[key]; ok {
		return fam, nil
	}

	data, _, err := r.fonts.Load(name, style)
	if err != nil {
		return nil, err
	}
	fam := canvas.NewFontFamily(key.family + "-" + style.String())
	if err := fam.LoadFont(data, 0, canvasStyle(style == fonts.Bold || style == fonts.BoldItalic, style == fonts.Italic || style == fonts.BoldItalic)); err != nil {
		return nil, fmt.Errorf("加载字体 %s(%s) 失败: %w", name, style, err)
	}
	r.fontFamilies[key] = fam
	return fam, nil
}

func canvasStyle(bold, italic bool) canvas.FontStyle {
	result := canvas.FontRegular
	if bold {
		result = canvas.FontBold
	}
	if italic {
		result |= canvas.FontItalic
	}
	return result
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// pageSurface 把 layout.Surface 的调用转成当前页 canvas.Context 上的绘制。
type pageSurface struct {
	r   *Renderer
	ctx *canvas.Context
}

func (s *pageSurface) Save()    { s.ctx.Push() }
func (s *pageSurface) Restore() { s.ctx.Pop() }

func (s *pageSurface) StrokePath(points []layout.Point, pen layout.Pen) {
	if len(points) < 2 || pen.Width <= 0 {
		return
	}
	s.ctx.SetFillColor(canvas.Transparent)
	s.ctx.SetStrokeColor(colorFromLayout(pen.Color))
	s.ctx.SetStrokeWidth(pen.Width)
	if pen.RoundCap {
		s.ctx.SetStrokeCapper(canvas.RoundCap)
	} else {
		s.ctx.SetStrokeCapper(canvas.ButtCap)
	}
	s.ctx.SetDashes(0, pen.Dashes...)

	p := &canvas.Path{}
	p.MoveTo(points[0].X, points[0].Y)
	for _, pt := range points[1:] {
		p.LineTo(pt.X, pt.Y)
	}
	s.ctx.DrawPath(0, 0, p)
}

// ShowLine 逐个片段绘制一行，基线位于行顶部加上升部；两端对齐时按词绘制并拉宽空格。
func (s *pageSurface) ShowLine(line layout.TextLine, x, y float64, style layout.TextStyle, wordSpacing float64) error {
	style = style.Resolved()
	baseline := y + line.Ascent
	cursor := x
	for _, run := range line.Runs {
		eff := run.Effective(style)
		var decorators []any
		if run.Underline {
			decorators = append(decorators, canvas.FontUnderline)
		}
		face, err := s.r.fontFace(eff, decorators...)
		if err != nil {
			return err
		}
		if wordSpacing == 0 {
			s.ctx.DrawText(cursor, baseline, canvas.NewTextLine(face, run.Text, canvas.Left))
			cursor += face.TextWidth(run.Text)
			continue
		}
		words := strings.Split(run.Text, " ")
		space := face.TextWidth(" ")
		for i, word := range words {
			if i > 0 {
				cursor += space + wordSpacing
			}
			if word == "" {
				continue
			}
			s.ctx.DrawText(cursor, baseline, canvas.NewTextLine(face, word, canvas.Left))
			cursor += face.TextWidth(word)
		}
	}
	return nil
}

func (s *pageSurface) DrawImage(img image.Image, dst layout.Rect) error {
	if img == nil {
		return fmt.Errorf("图片为空")
	}
	px := img.Bounds().Dx()
	if px <= 0 || dst.W <= 0 {
		return fmt.Errorf("图片尺寸无效: %dpx / %gmm", px, dst.W)
	}
	s.ctx.DrawImage(dst.X, dst.Y, img, canvas.DPMM(float64(px)/dst.W))
	return nil
}
