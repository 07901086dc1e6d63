package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageMarginX   = 20.0
	pageMarginTop = 25.0
	bodyLineH     = 7.0
	titleText     = "BONAFIDE CERTIFICATE"
)

// PDFExporter lays rendered certificate text onto an A4 page. The lifecycle
// engine produces text only; everything visual happens here.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render produces the certificate PDF: optional institution heading, fixed
// title, then the body paragraph by paragraph.
func (e *PDFExporter) Render(body, heading string) ([]byte, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("pdf requires a certificate body")
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMarginX, pageMarginTop, pageMarginX)
	doc.AddPage()

	if heading != "" {
		doc.SetFont("Arial", "B", 16)
		doc.CellFormat(0, 10, strings.ToUpper(heading), "", 1, "C", false, 0, "")
		doc.Ln(4)
	}
	doc.SetFont("Arial", "B", 13)
	doc.CellFormat(0, 9, titleText, "", 1, "C", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Arial", "", 12)
	for _, paragraph := range strings.Split(body, "\n") {
		paragraph = strings.TrimRight(paragraph, " \t")
		if paragraph == "" {
			doc.Ln(5)
			continue
		}
		doc.MultiCell(0, bodyLineH, paragraph, "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
