package loader

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// loadText wraps a plain-text payload in a single page. The payload must be
// valid UTF-8; a UTF-8 BOM is stripped if present.
func loadText(content []byte) ([]Page, error) {
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("text payload is not valid UTF-8")
	}
	return []Page{{Text: string(content)}}, nil
}
