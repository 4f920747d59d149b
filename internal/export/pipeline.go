// Package export turns a cv.Document into a paginated PDF: render the layout
// off screen at a fixed width, rasterize the whole surface, slice the bitmap
// into A4 bands and assemble one page per band.
package export

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/layout"
	"cvbuilder/internal/metrics"
)

// FailureMessage 是导出失败时展示给用户的唯一提示。
const FailureMessage = "Failed to generate PDF"

// DefaultFilename 在文档没有姓名时使用。
const DefaultFilename = "my_cv"

// Stage names a step of the pipeline.
type Stage string

const (
	StageRender    Stage = "render"
	StageSurface   Stage = "surface"
	StageRasterize Stage = "rasterize"
	StagePaginate  Stage = "paginate"
	StageAssemble  Stage = "assemble"
)

// Error 表示某个阶段失败，整个导出被放弃。
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage 返回面向用户的提示。
func (e *Error) UserMessage() string { return FailureMessage }

// Surface is an off-screen render of one HTML page that is ready to be rasterized.
type Surface interface {
	Rasterize(ctx context.Context) (image.Image, error)
	Close() error
}

// SurfaceFactory opens a Surface for html laid out at widthPx CSS pixels. Open
// returns only after the page reports its fonts and images settled.
type SurfaceFactory interface {
	Open(ctx context.Context, html string, widthPx int) (Surface, error)
}

// Assembler builds the final document out of page bands.
type Assembler interface {
	Assemble(ctx context.Context, pages []image.Image, g PageGeometry) ([]byte, error)
}

// Artifact 是导出的结果。
type Artifact struct {
	Filename    string
	ContentType string
	Pages       int
	Data        []byte
}

// Pipeline runs exports. It is safe for concurrent use as long as the factory
// and assembler are.
type Pipeline struct {
	surfaces  SurfaceFactory
	assembler Assembler
	widthPx   int
	geometry  PageGeometry
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWidth 设置离屏画布的参考宽度（CSS 像素）。
func WithWidth(px int) Option {
	return func(p *Pipeline) {
		if px > 0 {
			p.widthPx = px
		}
	}
}

// WithGeometry 设置目标纸张。
func WithGeometry(g PageGeometry) Option {
	return func(p *Pipeline) { p.geometry = g }
}

// NewPipeline 创建导出管线。
func NewPipeline(surfaces SurfaceFactory, assembler Assembler, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		surfaces:  surfaces,
		assembler: assembler,
		widthPx:   layout.DefaultWidthPx,
		geometry:  A4,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export renders doc and returns the paginated PDF. The Document is copied
// before any work starts; the surface is closed on every path.
func (p *Pipeline) Export(ctx context.Context, doc cv.Document) (_ *Artifact, err error) {
	snapshot := doc.Clone()
	log := p.logger.With(slog.String("cv_id", snapshot.ID))
	start := time.Now()
	stage := StageRender
	defer func() {
		metrics.ObserveExport(string(stage), time.Since(start), err)
	}()

	fail := func(s Stage, cause error) error {
		stage = s
		log.Error("export failed", slog.String("stage", string(s)), slog.Any("error", cause))
		return &Error{Stage: s, Err: cause}
	}

	html, err := layout.RenderHTML(snapshot, p.widthPx)
	if err != nil {
		return nil, fail(StageRender, err)
	}

	surface, err := p.surfaces.Open(ctx, html, p.widthPx)
	if err != nil {
		return nil, fail(StageSurface, err)
	}
	defer func() {
		if cerr := surface.Close(); cerr != nil {
			log.Warn("close export surface failed", slog.Any("error", cerr))
		}
	}()

	raster, err := surface.Rasterize(ctx)
	if err != nil {
		return nil, fail(StageRasterize, err)
	}

	pages, err := Paginate(raster, p.geometry)
	if err != nil {
		return nil, fail(StagePaginate, err)
	}

	data, err := p.assembler.Assemble(ctx, pages, p.geometry)
	if err != nil {
		return nil, fail(StageAssemble, err)
	}

	stage = "done"
	artifact := &Artifact{
		Filename:    Filename(snapshot),
		ContentType: "application/pdf",
		Pages:       len(pages),
		Data:        data,
	}
	log.Info("export completed",
		slog.Int("pages", artifact.Pages),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return artifact, nil
}

// Filename 根据姓名生成下载文件名，姓名为空时使用 my_cv。
func Filename(doc cv.Document) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, doc.DisplayName())
	name = strings.TrimSpace(name)
	if name == "" || strings.Trim(name, ".") == "" {
		name = DefaultFilename
	}
	return name + ".pdf"
}
