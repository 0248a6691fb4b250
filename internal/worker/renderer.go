package worker

import (
	"context"

	"resumegenius/internal/pdf"
)

// Renderer 是 PDF 渲染协作方的抽象。
type Renderer interface {
	RenderPDF(ctx context.Context, htmlContent string) ([]byte, error)
}

// RodRenderer 通过 go-rod 无头浏览器渲染。
type RodRenderer struct {
	opts pdf.RenderOptions
}

// NewRodRenderer 构造默认的无头浏览器渲染器。
func NewRodRenderer() *RodRenderer {
	return &RodRenderer{opts: pdf.LetterPortrait()}
}

// RenderPDF 实现 Renderer。
func (r *RodRenderer) RenderPDF(_ context.Context, htmlContent string) ([]byte, error) {
	return pdf.GeneratePDFFromHTML(htmlContent, r.opts)
}
