package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-fonts/latin-modern/lmmono10italic"
	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10boldoblique"
	"github.com/go-fonts/latin-modern/lmsans10oblique"
	"github.com/go-fonts/latin-modern/lmsans10regular"
)

// Style 是字重与字形的组合。
type Style int

const (
	Regular Style = iota
	Bold
	Italic
	BoldItalic
)

// StyleOf 由粗体、斜体标记得到 Style。
func StyleOf(bold, italic bool) Style {
	switch {
	case bold && italic:
		return BoldItalic
	case bold:
		return Bold
	case italic:
		return Italic
	default:
		return Regular
	}
}

func (s Style) String() string {
	return [...]string{"regular", "bold", "italic", "bolditalic"}[s]
}

// Registry 按族名与样式保存字体文件数据，可并发读取。
type Registry struct {
	mu    sync.RWMutex
	faces map[string]map[Style][]byte
}

// NewRegistry 返回包含内置 Latin Modern 字体的注册表：serif、sans、mono。
func NewRegistry() *Registry {
	r := &Registry{faces: map[string]map[Style][]byte{}}
	r.Register("serif", Regular, lmroman10regular.TTF)
	r.Register("serif", Bold, lmroman10bold.TTF)
	r.Register("serif", Italic, lmroman10italic.TTF)
	r.Register("serif", BoldItalic, lmroman10bolditalic.TTF)
	r.Register("sans", Regular, lmsans10regular.TTF)
	r.Register("sans", Bold, lmsans10bold.TTF)
	r.Register("sans", Italic, lmsans10oblique.TTF)
	r.Register("sans", BoldItalic, lmsans10boldoblique.TTF)
	r.Register("mono", Regular, lmmono10regular.TTF)
	r.Register("mono", Italic, lmmono10italic.TTF)
	return r
}

// Register 注册（或覆盖）一个字体文件，族名不区分大小写。
func (r *Registry) Register(family string, style Style, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalize(family)
	if r.faces[key] == nil {
		r.faces[key] = map[Style][]byte{}
	}
	r.faces[key][style] = data
}

// LoadDir 注册 dir 下的 .ttf/.otf 文件。文件名形如 "Family-Bold.ttf"，
// 后缀 Regular/Bold/Italic/Oblique/BoldItalic/BoldOblique 决定样式，缺省为 Regular。
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("读取字体目录 %s 失败: %w", dir, err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("读取字体 %s 失败: %w", e.Name(), err)
		}
		family, style := parseFileName(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		r.Register(family, style, data)
	}
	return nil
}

// Families 返回已注册的族名（已排序）。
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.faces))
	for k := range r.faces {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Load 返回 family 在 style 下的字体数据。缺少该样式时依次退回到
// 去掉斜体、去掉粗体和 Regular，返回实际使用的样式。
func (r *Registry) Load(family string, style Style) ([]byte, Style, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	faces, ok := r.faces[normalize(family)]
	if !ok {
		return nil, Regular, fmt.Errorf("字体族 %s 未注册", family)
	}
	for _, s := range fallbacks(style) {
		if data, ok := faces[s]; ok {
			return data, s, nil
		}
	}
	return nil, Regular, fmt.Errorf("字体族 %s 没有可用的字形", family)
}

func fallbacks(style Style) []Style {
	switch style {
	case BoldItalic:
		return []Style{BoldItalic, Bold, Italic, Regular}
	case Bold:
		return []Style{Bold, Regular}
	case Italic:
		return []Style{Italic, Regular}
	default:
		return []Style{Regular}
	}
}

func normalize(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}

func parseFileName(name string) (string, Style) {
	i := strings.LastIndexByte(name, '-')
	if i < 0 {
		return name, Regular
	}
	switch strings.ToLower(name[i+1:]) {
	case "regular", "book":
		return name[:i], Regular
	case "bold":
		return name[:i], Bold
	case "italic", "oblique":
		return name[:i], Italic
	case "bolditalic", "boldoblique":
		return name[:i], BoldItalic
	default:
		return name, Regular
	}
}
