package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// maxDocxXMLBytes bounds the decompressed size of word/document.xml to
// protect against zip bombs in uploads.
const maxDocxXMLBytes = 64 << 20 // 64MB

// loadDOCX extracts text from a DOCX payload as a single page.
//
// DOCX is a zip archive; all visible body text lives in word/document.xml
// inside w:t elements, with w:p elements delimiting paragraphs. Walking
// those two elements with the streaming decoder recovers the text without
// needing the full WordprocessingML schema.
func loadDOCX(content []byte) ([]Page, error) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("parsing docx archive: %w", err)
	}

	var doc *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("docx archive has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("opening docx body: %w", err)
	}
	defer func() {
		_ = rc.Close()
	}()

	text, err := extractDocxText(io.LimitReader(rc, maxDocxXMLBytes))
	if err != nil {
		return nil, err
	}
	return []Page{{Text: text}}, nil
}

// extractDocxText streams the document XML, concatenating w:t runs and
// inserting newlines at paragraph and explicit line-break boundaries.
func extractDocxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing docx body: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	return sb.String(), nil
}
