package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则返回原占位符。
func Interpolate(text string, data any) string {
	return InterpolateFunc(text, data, nil)
}

// InterpolateFunc 与 Interpolate 相同，但替换值会先经过 quote（例如转义行内标记）。
func InterpolateFunc(text string, data any, quote func(string) string) string {
	if data == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		path := strings.TrimSpace(groups[1])
		if path == "" {
			return match
		}
		val, ok := Resolve(data, path)
		if !ok {
			return match
		}
		s := fmt.Sprint(val)
		if quote != nil {
			s = quote(s)
		}
		return s
	})
}

// Rows 读取 path 处的对象数组，作为表格行返回。
func Rows(data any, path string) ([]map[string]any, error) {
	val, ok := Resolve(data, path)
	if !ok {
		return nil, fmt.Errorf("数据路径 %s 不存在", path)
	}
	items, ok := val.([]any)
	if !ok {
		if typed, isRows := val.([]map[string]any); isRows {
			return typed, nil
		}
		return nil, fmt.Errorf("数据路径 %s 不是数组", path)
	}
	rows := make([]map[string]any, 0, len(items))
	for i, item := range items {
		row, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("数据路径 %s 的第 %d 项不是对象", path, i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Resolve 按 a.b[0].c 形式的路径在 data 中查找值。
func Resolve(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	name := segment
	var indexes []string
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 && rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

// asMap 兼容 JSON 解码的 map[string]any 与部分 YAML 解码得到的 map[any]any。
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func descendMap(current any, key string) (any, bool) {
	m, ok := asMap(current)
	if !ok {
		return nil, false
	}
	val, ok := m[key]
	return val, ok
}

func descendArray(current any, idx int) (any, bool) {
	c, ok := current.([]any)
	if !ok || idx < 0 || idx >= len(c) {
		return nil, false
	}
	return c[idx], true
}
