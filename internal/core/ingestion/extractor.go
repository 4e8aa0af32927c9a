package ingestion

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Page is the per-page output of text extraction. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor turns raw document bytes into ordered per-page text.
type Extractor interface {
	ExtractPages(content []byte) ([]Page, error)
}

// PDFExtractor extracts plain text page by page. Pages are the unit of
// extraction because chunk metadata records the source page number.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) ExtractPages(content []byte) ([]Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := r.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

var _ Extractor = (*PDFExtractor)(nil)
