package layout

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/quire/dsl"
)

const invoiceDSL = `doc Invoice v1 {
  meta {
    title: "Invoice ${number}"
    author: "Quire"
    keywords: ["billing", "2026"]
  }
  styles {
    color Accent = #ff0000
    text Body {
      family: "serif"
      size: 10
    }
    text Strong extends Body {
      bold: true
      color: Accent
    }
    line Thin {
      width: 0.2
      pattern: "dashed"
    }
  }
  page A4 portrait margin 10mm numbers "{page} / {pages}" {
    text Strong { "Hello ${customer}" }
    rule Thin
    table Body repeat-header true {
      columns name qty
      width fixed 100
      padding 1
      hline Thin head
      set bold true part head
      head { name: "Name" qty: "Qty" }
      rows items
      foot { name: "Total" qty: "${total}" }
    }
    break
    text { "after" }
  }
}`

func invoiceData() map[string]any {
	return map[string]any{
		"number":   7,
		"customer": "Ada & <Co>",
		"total":    5,
		"items": []any{
			map[string]any{"name": "Widget", "qty": 3},
			map[string]any{"name": "<b>Gadget</b>", "qty": 2},
		},
	}
}

func buildDSL(t *testing.T, src string, data any, opts BuildOptions) *Document {
	t.Helper()
	ast, err := dsl.ParseString(src)
	require.NoError(t, err)
	doc, err := Build(ast, data, opts)
	require.NoError(t, err)
	return doc
}

func buildError(t *testing.T, src string, data any) error {
	t.Helper()
	ast, err := dsl.ParseString(src)
	require.NoError(t, err)
	_, err = Build(ast, data, BuildOptions{})
	require.Error(t, err)
	return err
}

func TestBuildInvoice(t *testing.T) {
	doc := buildDSL(t, invoiceDSL, invoiceData(), BuildOptions{})

	meta := doc.Meta()
	assert.Equal(t, "Invoice 7", meta.Title)
	assert.Equal(t, "Quire", meta.Author)
	assert.Equal(t, "quire", meta.Creator)
	assert.Equal(t, []string{"billing", "2026"}, meta.Keywords)

	w, h := doc.PageSize()
	assert.Equal(t, 210.0, w)
	assert.Equal(t, 297.0, h)
	assert.Equal(t, Margin{Top: 10, Right: 10, Bottom: 10, Left: 10}, doc.Margin())

	n, err := doc.Paginate(monoTypesetter{})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	first := doc.Pages()[0].Items
	require.Len(t, first, 4)
	assert.Equal(t, []string{"text", "rule", "table", "page-number"},
		[]string{first[0].Kind, first[1].Kind, first[2].Kind, first[3].Kind})

	// 插入的数据按纯文本处理
	greeting := first[0].Block.(*TextBlock)
	assert.Equal(t, "Hello Ada & <Co>", greeting.Text())
	assert.True(t, greeting.Style().Bold)
	assert.Equal(t, Color{R: 255}, greeting.Style().Color)
	assert.Equal(t, 190.0, greeting.Width())

	assert.Equal(t, 190.0, first[1].W)

	table := first[2].Block.(*TableBlock)
	assert.Equal(t, 100.0, table.Width())
	assert.Equal(t, 2, table.RowCount(PartBody))
	assert.True(t, table.Cell(PartHead, 0, 0).Style().Bold)
	assert.False(t, table.Cell(PartBody, 0, 0).Style().Bold)
	assert.Equal(t, "<b>Gadget</b>", table.Cell(PartBody, 1, 0).Text())
	assert.Equal(t, "5", table.Cell(PartFoot, 0, 1).Text())
	ls, ok := table.Style().HRuleStyle(HRuleHead)
	require.True(t, ok)
	assert.Equal(t, Dashed, ls.Pattern)
	assert.Equal(t, Padding{Left: 1, Right: 1, Top: 1, Bottom: 1}, table.Style().Padding())

	second := doc.Pages()[1].Items
	assert.Equal(t, "after", second[0].Text)
	assert.Equal(t, "2 / 2", second[len(second)-1].Text)
}

func TestBuildPageGeometry(t *testing.T) {
	doc := buildDSL(t, `doc T v1 {
  page A5 landscape margin 10mm 20mm spacing 5 {
    text { "x" }
  }
}`, nil, BuildOptions{})

	w, h := doc.PageSize()
	assert.Equal(t, 210.0, w)
	assert.Equal(t, 148.0, h)
	assert.Equal(t, Margin{Top: 10, Right: 20, Bottom: 10, Left: 20}, doc.Margin())
	assert.Equal(t, 170.0, doc.ContentWidth())
}

func TestBuildTextInlineAttributes(t *testing.T) {
	doc := buildDSL(t, `doc T v1 {
  page A4 {
    text align center size 14 width 50% { "centred" }
  }
}`, nil, BuildOptions{})

	_, err := doc.Paginate(monoTypesetter{})
	require.NoError(t, err)
	blk := doc.Pages()[0].Items[0].Block.(*TextBlock)
	assert.Equal(t, AlignCenter, blk.Style().Align)
	assert.Equal(t, 14.0, blk.Style().Size)
	assert.Equal(t, 85.0, blk.Width())
}

func TestBuildRuleAndImage(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "logo.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, checker(20, 10)))
	require.NoError(t, f.Close())

	doc := buildDSL(t, `doc T v1 {
  page A4 {
    rule dy 20
    image src "logo.png" width 40 height 20 center true dpu 5
  }
}`, nil, BuildOptions{BaseDir: dir})

	_, err = doc.Paginate(monoTypesetter{})
	require.NoError(t, err)
	items := doc.Pages()[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, 0.0, items[0].W)
	assert.Equal(t, 20.0, items[0].H)

	img := items[1].Block.(*ImageBlock)
	assert.Equal(t, filepath.Join(dir, "logo.png"), img.Name())
	assert.Equal(t, 40.0, img.Width())
	pw, ph := img.Pixels()
	assert.Equal(t, 200, pw)
	assert.Equal(t, 100, ph)
}

func TestBuildImageMissing(t *testing.T) {
	err := buildError(t, `doc T v1 {
  page A4 {
    image src "nope.png"
  }
}`, nil)
	assert.ErrorIs(t, err, ErrImageLoad)
}

func TestBuildTableMissingCell(t *testing.T) {
	doc := buildDSL(t, `doc T v1 {
  styles {
    line Frame {
      width: 0.5
      pattern: "double"
    }
  }
  page A4 {
    table {
      columns name "unit price"
      vline Frame left right
      row { name: "a" }
    }
  }
}`, nil, BuildOptions{})

	_, err := doc.Paginate(monoTypesetter{})
	assert.ErrorIs(t, err, ErrMissingCell)
}

func TestBuildTableStyleScopes(t *testing.T) {
	doc := buildDSL(t, `doc T v1 {
  styles {
    text Small {
      size: 8
    }
  }
  page A4 {
    table {
      columns name price
      column-width fixed 30
      padding 3 left right
      skip-padding top bottom
      style Small column name
      set align right column price
      row { name: "a" price: 1 }
      rows order.lines part foot
    }
  }
}`, map[string]any{
		"order": map[string]any{
			"lines": []any{map[string]any{"name": "sum", "price": 9.5}},
		},
	}, BuildOptions{})

	_, err := doc.Paginate(monoTypesetter{})
	require.NoError(t, err)
	table := doc.Pages()[0].Items[0].Block.(*TableBlock)
	assert.Equal(t, []float64{30, 30}, table.ColumnWidths())
	assert.Equal(t, Padding{Left: 3, Right: 3, Top: 2, Bottom: 2}, table.Style().Padding())
	assert.Equal(t, Edges{Top: true, Bottom: true}, table.Style().Skip())
	assert.Equal(t, 8.0, table.Cell(PartBody, 0, 0).Style().Size)
	assert.Equal(t, AlignRight, table.Cell(PartFoot, 0, 1).Style().Align)
	assert.Equal(t, "9.5", table.Cell(PartFoot, 0, 1).Text())
	// 上下外缘内边距被省略：表体 2+10，表尾 10+2
	assert.Equal(t, 24.0, table.Height())
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]string{
		"no page": `doc T v1 {
  meta {
    title: "x"
  }
}`,
		"two pages": `doc T v1 {
  page A4 {
    text { "a" }
  }
  page A4 {
    text { "b" }
  }
}`,
		"unknown size": `doc T v1 {
  page B7 {
    text { "a" }
  }
}`,
		"unknown style": `doc T v1 {
  page A4 {
    text Missing { "a" }
  }
}`,
		"style cycle": `doc T v1 {
  styles {
    text A extends B {
      size: 10
    }
    text B extends A {
      size: 12
    }
  }
  page A4 {
    text { "a" }
  }
}`,
		"unknown command": `doc T v1 {
  page A4 {
    paragraph { "a" }
  }
}`,
		"fixed and fixed": `doc T v1 {
  page A4 {
    table {
      columns a
      width fixed 100
      column-width fixed 20
    }
  }
}`,
		"unknown text field": `doc T v1 {
  styles {
    text Body {
      sparkle: true
    }
  }
  page A4 {
    text Body { "a" }
  }
}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			buildError(t, src, nil)
		})
	}
}

func TestResolveStylesMergesParents(t *testing.T) {
	resolved, err := resolveStyles(map[string]styleDef{
		"Base":  {kind: "text", name: "Base", props: map[string]string{"size": "10", "bold": "true"}},
		"Child": {kind: "text", name: "Child", extends: "Base", props: map[string]string{"size": "12"}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"size": "12", "bold": "true"}, resolved["Child"].props)

	_, err = resolveStyles(map[string]styleDef{
		"Line": {kind: "line", name: "Line"},
		"Text": {kind: "text", name: "Text", extends: "Line"},
	})
	assert.Error(t, err)
}
