package layout

import (
	"errors"
	"fmt"
	"strings"
)

// 错误码与宿主约定一致，Args 携带上下文（文件名、原始文本等）。
const (
	CodeMarkup        = "MARKUP_PARSE_ERROR"
	CodeImageLoad     = "LOADING_IMAGE_FAILED"
	CodeTableTooTall  = "TABLE_TOO_TALL"
	CodeEmptyDocument = "NO_PAGES"
	CodeInvalidStyle  = "INVALID_STYLE_COMBINATION"
	CodeMissingCell   = "MISSING_CELL"
	CodeNoProgress    = "NO_PROGRESS"
)

var (
	ErrMarkup        = errors.New("malformed inline markup")
	ErrImageLoad     = errors.New("image could not be loaded")
	ErrTableTooTall  = errors.New("table part exceeds page height")
	ErrEmptyDocument = errors.New("document has no pages")
	ErrInvalidStyle  = errors.New("invalid style combination")
	ErrMissingCell   = errors.New("row lacks a column value")
	ErrNoProgress    = errors.New("split made no progress")
)

var sentinels = map[string]error{
	CodeMarkup:        ErrMarkup,
	CodeImageLoad:     ErrImageLoad,
	CodeTableTooTall:  ErrTableTooTall,
	CodeEmptyDocument: ErrEmptyDocument,
	CodeInvalidStyle:  ErrInvalidStyle,
	CodeMissingCell:   ErrMissingCell,
	CodeNoProgress:    ErrNoProgress,
}

// RenderError 是布局引擎向宿主报告的错误，始终在发现问题的调用处同步返回。
type RenderError struct {
	Code  string
	Args  []any
	Cause error
}

// NewRenderError 创建带错误码与上下文参数的错误。
func NewRenderError(code string, args ...any) *RenderError {
	return &RenderError{Code: code, Args: args}
}

func (e *RenderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	for _, a := range e.Args {
		b.WriteString(": ")
		b.WriteString(fmt.Sprint(a))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is 让 errors.Is(err, ErrTableTooTall) 之类的判断生效。
func (e *RenderError) Is(target error) bool {
	return sentinels[e.Code] == target
}

func (e *RenderError) Unwrap() error { return e.Cause }

func wrapRenderError(code string, cause error, args ...any) *RenderError {
	return &RenderError{Code: code, Args: args, Cause: cause}
}
