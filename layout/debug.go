package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// debugPlan 是分页结果的 JSON 视图。
type debugPlan struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Margin Margin       `json:"margin"`
	Meta   DocumentMeta `json:"meta"`
	Pages  []debugPage  `json:"pages"`
}

type debugPage struct {
	Page
	Lines map[int][]TextLine `json:"lines,omitempty"` // 按条目下标记录文本行
}

// WriteDebugJSON 将分页结果输出为 JSON，便于调试或可视化。需要先调用 Paginate。
func WriteDebugJSON(doc *Document, path string, opts DebugOptions) error {
	if doc == nil {
		return nil
	}
	if !doc.paginated {
		return fmt.Errorf("layout: 输出调试信息前需要先调用 Paginate")
	}
	plan := debugPlan{Width: doc.width, Height: doc.height, Margin: doc.margin, Meta: doc.meta}
	for _, p := range doc.pages {
		dp := debugPage{Page: p}
		if opts.Lines {
			for i, it := range p.Items {
				tb, ok := it.Block.(*TextBlock)
				if !ok {
					continue
				}
				if dp.Lines == nil {
					dp.Lines = make(map[int][]TextLine)
				}
				dp.Lines[i] = tb.Lines()
			}
		}
		plan.Pages = append(plan.Pages, dp)
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
