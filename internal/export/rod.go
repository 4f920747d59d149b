package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"cvbuilder/internal/layout"
)

// BrowserOptions 配置无头浏览器。
type BrowserOptions struct {
	// Bin 为空时自动查找本机 Chromium。
	Bin string
	// DeviceScale 是光栅化倍率。
	DeviceScale float64
	// SettleTimeout 是等待字体与图片加载的上限。
	SettleTimeout time.Duration
}

func (o BrowserOptions) withDefaults() BrowserOptions {
	if o.DeviceScale <= 0 {
		o.DeviceScale = 2
	}
	if o.SettleTimeout <= 0 {
		o.SettleTimeout = 5 * time.Second
	}
	return o
}

// Browser is a headless Chromium that serves as both SurfaceFactory and
// Assembler. One Browser can run many exports; each one gets its own page.
type Browser struct {
	opts    BrowserOptions
	launch  *launcher.Launcher
	browser *rod.Browser
	logger  *slog.Logger
}

// LaunchBrowser 启动 Chromium 并建立连接。
func LaunchBrowser(opts BrowserOptions, logger *slog.Logger) (_ *Browser, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	defer func() {
		if err != nil {
			launch.Cleanup()
		}
	}()

	if opts.Bin != "" {
		launch = launch.Bin(opts.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	logger.Info("headless browser ready", slog.String("control_url", browserURL))
	return &Browser{opts: opts, launch: launch, browser: browser, logger: logger}, nil
}

// Close 关闭浏览器并清理临时目录。
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launch.Cleanup()
	return err
}

// settleScript 等待 web 字体和所有图片完成加载，单项最长 3 秒。
const settleScript = `() => {
  const withCap = (p) => Promise.race([p, new Promise((resolve) => setTimeout(resolve, 3000))]);
  const fonts = (document.fonts && document.fonts.ready) ? document.fonts.ready : Promise.resolve();
  const images = Array.from(document.images)
    .filter((img) => !img.complete)
    .map((img) => new Promise((resolve) => { img.onload = resolve; img.onerror = resolve; }));
  return withCap(Promise.all([fonts, ...images])).then(() => true);
}`

// Open 在新标签页中载入 html，等待就绪信号后返回。
func (b *Browser) Open(ctx context.Context, html string, widthPx int) (_ Surface, err error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		if err != nil {
			_ = page.Close()
		}
	}()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             widthPx,
		Height:            int(A4.PageHeightPx(widthPx)),
		DeviceScaleFactor: b.opts.DeviceScale,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	waiting := page.Timeout(b.opts.SettleTimeout)
	if _, err := waiting.Element("#" + layout.ReadyMarkerID); err != nil {
		return nil, fmt.Errorf("wait render marker: %w", err)
	}
	if _, err := waiting.Eval(settleScript); err != nil {
		// 超时也继续，字体回退只影响外观
		b.logger.Warn("wait for fonts and images failed, continue", slog.Any("error", err))
	}

	return &rodSurface{page: page}, nil
}

type rodSurface struct {
	page *rod.Page
}

func (s *rodSurface) Rasterize(ctx context.Context) (image.Image, error) {
	data, err := s.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

func (s *rodSurface) Close() error {
	return s.page.Close()
}

var pagesTemplate = template.Must(template.New("pages").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  @page { size: {{.WidthMM}}mm {{.HeightMM}}mm; margin: 0; }
  html, body { margin: 0; padding: 0; background: white; }
  .page { width: {{.WidthMM}}mm; height: {{.HeightMM}}mm; overflow: hidden; page-break-after: always; break-after: page; }
  .page:last-child { page-break-after: auto; break-after: auto; }
  .page img { display: block; width: 100%; }
</style>
</head>
<body>
{{range .Pages}}<div class="page"><img src="{{.}}"></div>
{{end}}</body>
</html>`))

// Assemble 把每个分页位图放到独立的一页上，再打印为 PDF。
func (b *Browser) Assemble(ctx context.Context, pages []image.Image, g PageGeometry) (_ []byte, err error) {
	sources := make([]template.URL, 0, len(pages))
	for i, p := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, p); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		sources = append(sources, template.URL("data:image/png;base64,"+base64.StdEncoding.EncodeToString(buf.Bytes())))
	}

	var html strings.Builder
	if err := pagesTemplate.Execute(&html, map[string]any{
		"WidthMM":  g.WidthMM,
		"HeightMM": g.HeightMM,
		"Pages":    sources,
	}); err != nil {
		return nil, fmt.Errorf("render pages html: %w", err)
	}

	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	if err := page.SetDocumentContent(html.String()); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	const mmPerInch = 25.4
	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        float64Ptr(g.WidthMM / mmPerInch),
		PaperHeight:       float64Ptr(g.HeightMM / mmPerInch),
		MarginTop:         float64Ptr(0),
		MarginBottom:      float64Ptr(0),
		MarginLeft:        float64Ptr(0),
		MarginRight:       float64Ptr(0),
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

// Screenshot renders html at widthPx and returns a JPEG of the first page
// area. Used for layout preview thumbnails.
func (b *Browser) Screenshot(ctx context.Context, html string, widthPx, quality int) ([]byte, error) {
	surface, err := b.Open(ctx, html, widthPx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = surface.Close()
	}()

	page := surface.(*rodSurface).page.Context(ctx)
	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &quality,
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return data, nil
}

func float64Ptr(value float64) *float64 {
	return &value
}
