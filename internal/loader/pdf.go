package loader

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// loadPDF extracts plain text from a PDF, one Page per physical page.
// Pages that fail text extraction (scanned images, exotic encodings) are
// skipped rather than failing the whole document.
func loadPDF(content []byte) (pages []Page, err error) {
	// The pdf package panics on some malformed inputs; convert to an error
	// so a corrupt upload degrades to "no extractable content".
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("parsing pdf: %w", err)
	}

	total := reader.NumPage()
	pages = make([]Page, 0, total)
	fonts := make(map[string]*pdf.Font)

	for num := 1; num <= total; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		pages = append(pages, Page{Text: text, Number: num})
	}

	return pages, nil
}
