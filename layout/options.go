package layout

import "image"

// BuildOptions 配置从 DSL 构建文档所需的依赖。
type BuildOptions struct {
	// BaseDir 用于解析图片等相对路径。
	BaseDir string
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	Lines bool // 在调试 JSON 中输出每个文本块的行
}

// Typesetter 是排版后端：根据样式把带样式片段排成若干行并给出尺寸。
// 约定：TextStyle.Size 为 pt，返回的宽高与 MaxWidth 使用页面单位（mm）。
type Typesetter interface {
	LayoutLines(runs []Run, style TextStyle) ([]TextLine, error)
}

// Surface 是当前页面的绘制面，由宿主在绘制每一页前建立。
type Surface interface {
	// Save 与 Restore 成对保存/恢复描边等绘制状态。
	Save()
	Restore()
	StrokePath(points []Point, pen Pen)
	// ShowLine 以行顶部 (x, y) 为起点绘制一行，wordSpacing 会加到每个空格上（两端对齐）。
	ShowLine(line TextLine, x, y float64, style TextStyle, wordSpacing float64) error
	DrawImage(img image.Image, dst Rect) error
}

// Block 是已测量、可绘制的内容单元。
type Block interface {
	Width() float64
	Height() float64
	Draw(s Surface, x, y float64) error
}

// Pager 由宿主驱动：先 Paginate 得到页数，再逐页 DrawPage。
type Pager interface {
	// PageSize 返回页面宽高（mm）。
	PageSize() (float64, float64)
	// Paginate 在任何绘制之前计算并返回最终页数。
	Paginate(ts Typesetter) (int, error)
	// DrawPage 绘制从 0 开始编号的第 index 页，origin 为绝对原点。
	DrawPage(s Surface, index int, origin Point) error
}
