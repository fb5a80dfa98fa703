package layout

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var loggerPtr atomic.Pointer[zap.Logger]

func init() {
	loggerPtr.Store(zap.NewNop())
}

// SetLogger 设置 layout 及其子包共用的日志器，传入 nil 恢复为静默。
// 拆分与分页的决策以 Debug 级别输出。
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerPtr.Store(l)
}

// Logger 返回当前日志器，可并发调用。
func Logger() *zap.Logger {
	return loggerPtr.Load()
}
