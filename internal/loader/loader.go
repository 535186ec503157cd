// Package loader extracts plain text from uploaded documents.
//
// A closed allow-list of content types is supported: PDF, plain text
// (including markdown and CSV), and DOCX. Anything else is rejected with
// ErrUnsupportedType before any bytes are inspected.
//
// A loaded document is a sequence of pages. PDF yields one page per
// physical page so citations can point at real page numbers; text and
// DOCX yield a single page with no page number.
package loader

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

// Supported content types.
const (
	TypePDF      = "application/pdf"
	TypePlain    = "text/plain"
	TypeMarkdown = "text/markdown"
	TypeCSV      = "text/csv"
	TypeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupportedType indicates the declared content type is not in the
// allow-list. Check with errors.Is.
var ErrUnsupportedType = errors.New("unsupported content type")

// Page is one unit of extracted text.
type Page struct {
	Text string
	// Number is the 1-based page number within the source document.
	// Zero means the format has no page structure (plain text, DOCX).
	Number int
	// Filename is the original upload filename, attached for provenance.
	Filename string
}

// Supported reports whether the declared content type is in the allow-list.
// Media-type parameters (e.g. "; charset=utf-8") are ignored.
func Supported(contentType string) bool {
	switch normalize(contentType) {
	case TypePDF, TypePlain, TypeMarkdown, TypeCSV, TypeDOCX:
		return true
	}
	return false
}

// Load extracts text from content according to its declared type.
//
// An unsupported type returns ErrUnsupportedType. A supported type whose
// payload cannot be parsed (corrupt PDF, malformed DOCX) returns a parse
// error; callers treat that as "no extractable content" rather than a
// system fault. Pages with only whitespace are dropped; a document may
// therefore load successfully with zero pages.
func Load(content []byte, contentType, filename string) ([]Page, error) {
	var (
		pages []Page
		err   error
	)

	switch normalize(contentType) {
	case TypePDF:
		pages, err = loadPDF(content)
	case TypePlain, TypeMarkdown, TypeCSV:
		pages, err = loadText(content)
	case TypeDOCX:
		pages, err = loadDOCX(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if err != nil {
		return nil, err
	}

	kept := pages[:0]
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		p.Filename = filename
		kept = append(kept, p)
	}
	return kept, nil
}

// normalize strips media-type parameters and lowercases the type.
func normalize(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}
