package payment

import (
	"context"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/export"
)

// Exporter 与 editor.Exporter 相同。
type Exporter interface {
	Export(ctx context.Context, doc cv.Document) (*export.Artifact, error)
}

// GatedExporter runs the payment handshake before every export. The export
// never starts unless the payment is verified.
type GatedExporter struct {
	gate *Gate
	next Exporter
}

// NewGatedExporter 用付费闸门包装导出器。
func NewGatedExporter(gate *Gate, next Exporter) *GatedExporter {
	return &GatedExporter{gate: gate, next: next}
}

func (g *GatedExporter) Export(ctx context.Context, doc cv.Document) (*export.Artifact, error) {
	if err := g.gate.Authorize(ctx, OrderRequest{CVID: doc.ID, Purpose: PurposeDownload}); err != nil {
		return nil, err
	}
	return g.next.Export(ctx, doc)
}
