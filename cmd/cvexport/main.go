package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/export"
	"cvbuilder/internal/layout"
)

func main() {
	var (
		in        = flag.String("in", "", "简历 JSON 文件（必填）")
		out       = flag.String("out", "", "输出 PDF 路径（默认按姓名命名，写入当前目录）")
		layoutID  = flag.String("layout", "", "套用内置版式的设计参数，例如 layout2")
		chromium  = flag.String("chromium", os.Getenv("CHROMIUM_BIN"), "Chromium 可执行文件（默认自动查找）")
		width     = flag.Int("width", layout.DefaultWidthPx, "离屏画布宽度（px）")
		scale     = flag.Float64("scale", 2, "光栅化倍率")
		timeout   = flag.Duration("timeout", 2*time.Minute, "整体超时")
		verbosity = flag.Bool("v", false, "输出调试日志")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbosity {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *in == "" {
		log.Fatal("missing required flag: -in")
	}

	doc, err := readDocument(*in)
	if err != nil {
		log.Fatalf("read document: %v", err)
	}
	if *layoutID != "" {
		d, ok := layout.Lookup(layout.DefaultCatalog(), *layoutID)
		if !ok {
			log.Fatalf("unknown layout %q", *layoutID)
		}
		doc.Design = d.Design
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	browser, err := export.LaunchBrowser(export.BrowserOptions{Bin: *chromium, DeviceScale: *scale}, logger)
	if err != nil {
		log.Fatalf("launch browser: %v", err)
	}
	defer browser.Close()

	pipeline := export.NewPipeline(browser, browser, logger, export.WithWidth(*width))
	artifact, err := pipeline.Export(ctx, doc)
	if err != nil {
		browser.Close()
		log.Fatalf("export: %v", err)
	}

	target := *out
	if target == "" {
		target = artifact.Filename
	}
	if err := os.WriteFile(target, artifact.Data, 0o644); err != nil {
		browser.Close()
		log.Fatalf("write %s: %v", target, err)
	}

	abs, _ := filepath.Abs(target)
	fmt.Printf("%s (%d pages)\n", abs, artifact.Pages)
}

// readDocument 读取 JSON 文档并做与保存前相同的校验。
func readDocument(path string) (cv.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cv.Document{}, err
	}
	doc := cv.New()
	if err := json.Unmarshal(data, &doc); err != nil {
		return cv.Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	doc = doc.Normalize()
	if err := doc.Validate(); err != nil {
		return cv.Document{}, err
	}
	return doc, nil
}
