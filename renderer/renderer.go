package renderer

import "github.com/ByLCY/quire/layout"

// Renderer 驱动 Pager 完成分页与绘制，并输出最终文件，例如 PDF。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(p layout.Pager) ([]byte, error)
}

// MetaSource 由带文档元信息的 Pager 实现，渲染器据此写入 PDF 信息字典。
type MetaSource interface {
	Meta() layout.DocumentMeta
}
