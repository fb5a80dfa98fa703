package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/quire/config"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
	canvasrenderer "github.com/ByLCY/quire/renderer/canvas"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误: %v\n", err)
		os.Exit(2)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建日志失败: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	layout.SetLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("生成 PDF 失败", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("已生成 PDF", zap.String("out", cfg.Out))
}

// run 串联解析、布局与渲染。
func run(cfg *config.Config, logger *zap.Logger) error {
	ast, err := dsl.ParseFile(cfg.In)
	if err != nil {
		return fmt.Errorf("解析 DSL 失败: %w", err)
	}

	data, err := loadData(cfg.Data)
	if err != nil {
		return err
	}

	doc, err := layout.Build(ast, data, layout.BuildOptions{BaseDir: filepath.Dir(cfg.In)})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}

	r, err := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{FontDir: cfg.FontDir})
	if err != nil {
		return err
	}
	pdfBytes, err := r.Render(doc)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	logger.Debug("渲染完成", zap.Int("pages", len(doc.Pages())), zap.Int("bytes", len(pdfBytes)))

	if cfg.Debug != "" {
		if err := writeDebug(doc, cfg.Debug, layout.DebugOptions{Lines: cfg.DebugLines}); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Out), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(cfg.Out, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

// loadData 读取绑定数据；YAML 是 JSON 的超集，两种格式都按 YAML 解析。
func loadData(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件 %s 失败: %w", path, err)
	}
	var data any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("解析数据文件 %s 失败: %w", path, err)
	}
	return data, nil
}

func writeDebug(doc *layout.Document, debugPath string, opts layout.DebugOptions) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(doc, debugPath, opts); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
