package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 是命令行工具的全部配置。
type Config struct {
	In         string
	Out        string
	Data       string
	Debug      string
	DebugLines bool
	FontDir    string
	Log        LogConfig
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // console, json
	Output string // stdout, stderr 或文件路径
}

// Load 解析命令行参数并合并配置，优先级从高到低：
// 1. 命令行参数
// 2. QUIRE_ 前缀的环境变量（例如 QUIRE_LOG_LEVEL）
// 3. 配置文件（--config 指定，或当前目录下的 quire.yaml / quire.toml）
// 4. 内置默认值
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("quire", pflag.ContinueOnError)
	fs.String("config", "", "配置文件路径")
	fs.StringP("in", "i", "", "DSL 文件路径")
	fs.StringP("out", "o", "output.pdf", "PDF 输出路径")
	fs.StringP("data", "d", "", "绑定到 DSL 的数据文件（YAML 或 JSON）")
	fs.String("debug", "", "分页调试 JSON 输出路径")
	fs.Bool("debug-lines", false, "在调试 JSON 中输出文本行")
	fs.String("font-dir", "", "额外字体目录")
	fs.String("log-level", "info", "日志级别：debug, info, warn, error")
	fs.String("log-format", "console", "日志格式：console, json")
	fs.String("log-output", "stderr", "日志输出：stdout, stderr 或文件路径")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("QUIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"in":          "in",
		"out":         "out",
		"data":        "data",
		"debug":       "debug",
		"debug-lines": "debug_lines",
		"font-dir":    "font_dir",
		"log-level":   "log.level",
		"log-format":  "log.format",
		"log-output":  "log.output",
	}
	for flag, key := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("绑定参数 %s 失败: %w", flag, err)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quire")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 位置参数作为输入文件
	if rest := fs.Args(); len(rest) > 0 && v.GetString("in") == "" {
		v.Set("in", rest[0])
	}

	cfg := &Config{
		In:         v.GetString("in"),
		Out:        v.GetString("out"),
		Data:       v.GetString("data"),
		Debug:      v.GetString("debug"),
		DebugLines: v.GetBool("debug_lines"),
		FontDir:    v.GetString("font_dir"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.In == "" {
		return fmt.Errorf("缺少输入文件，请使用 --in 指定 DSL 文件")
	}
	if c.Out == "" {
		return fmt.Errorf("缺少输出路径")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("日志级别 %q 无效", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("日志格式 %q 无效，可选 console 或 json", c.Log.Format)
	}
	return nil
}

// NewLogger 按配置创建 zap 日志。
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	writer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return zap.New(zapcore.NewCore(encoder, writer, level), zap.AddCaller()), nil
}

func openOutput(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return zapcore.AddSync(os.Stderr), nil
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件 %s 失败: %w", output, err)
		}
		return zapcore.AddSync(f), nil
	}
}
