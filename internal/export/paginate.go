package export

import (
	"errors"
	"image"
	"math"
)

// ErrEmptySurface 表示光栅化结果没有可分页的像素。
var ErrEmptySurface = errors.New("rasterized surface is empty")

// PageGeometry 以毫米描述目标纸张。
type PageGeometry struct {
	WidthMM  float64
	HeightMM float64
}

// A4 portrait.
var A4 = PageGeometry{WidthMM: 210, HeightMM: 297}

// PageHeightPx 返回宽度为 widthPx 的位图在该纸张上一页所占的像素高度。
func (g PageGeometry) PageHeightPx(widthPx int) float64 {
	return float64(widthPx) * g.HeightMM / g.WidthMM
}

// Bands slices a bitmap of the given bounds into consecutive page-height bands,
// top to bottom. Every band but the last is exactly one page tall; the last one
// holds whatever remains.
func Bands(bounds image.Rectangle, g PageGeometry) ([]image.Rectangle, error) {
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, ErrEmptySurface
	}
	pagePx := g.PageHeightPx(w)
	if pagePx <= 0 {
		return nil, errors.New("invalid page geometry")
	}

	var bands []image.Rectangle
	for i := 0; ; i++ {
		top := int(math.Round(float64(i) * pagePx))
		if top >= h {
			break
		}
		bottom := int(math.Round(float64(i+1) * pagePx))
		if bottom > h {
			bottom = h
		}
		bands = append(bands, image.Rect(bounds.Min.X, bounds.Min.Y+top, bounds.Max.X, bounds.Min.Y+bottom))
	}
	return bands, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Paginate 把位图切成逐页的子图，子图与原图共享像素。
func Paginate(img image.Image, g PageGeometry) ([]image.Image, error) {
	bands, err := Bands(img.Bounds(), g)
	if err != nil {
		return nil, err
	}
	src, ok := img.(subImager)
	if !ok {
		return nil, errors.New("raster does not support sub images")
	}
	pages := make([]image.Image, 0, len(bands))
	for _, b := range bands {
		pages = append(pages, src.SubImage(b))
	}
	return pages, nil
}
