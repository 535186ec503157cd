package loader

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/lyceum-ai/lyceum/internal/testutil"
)

func TestSupported(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/pdf", true},
		{"text/plain", true},
		{"text/plain; charset=utf-8", true},
		{"text/markdown", true},
		{"text/csv", true},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"TEXT/PLAIN", true},
		{"text/html", false},
		{"application/json", false},
		{"image/png", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			if got := Supported(tt.contentType); got != tt.want {
				t.Errorf("Supported(%q) = %v, want %v", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestLoadUnsupportedType(t *testing.T) {
	_, err := Load([]byte("<html></html>"), "text/html", "page.html")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Load error = %v, want ErrUnsupportedType", err)
	}
}

func TestLoadPlainText(t *testing.T) {
	pages, err := Load([]byte("hello world"), "text/plain; charset=utf-8", "notes.txt")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if pages[0].Text != "hello world" {
		t.Errorf("page text = %q", pages[0].Text)
	}
	if pages[0].Number != 0 {
		t.Errorf("page number = %d, want 0 for plain text", pages[0].Number)
	}
	if pages[0].Filename != "notes.txt" {
		t.Errorf("filename = %q, want notes.txt", pages[0].Filename)
	}
}

func TestLoadTextStripsBOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("content")...)
	pages, err := Load(raw, "text/markdown", "readme.md")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if pages[0].Text != "content" {
		t.Errorf("page text = %q, want BOM stripped", pages[0].Text)
	}
}

func TestLoadTextRejectsInvalidUTF8(t *testing.T) {
	if _, err := Load([]byte{0xff, 0xfe, 0x00}, "text/plain", "bad.txt"); err == nil {
		t.Error("expected error for invalid UTF-8 payload")
	}
}

func TestLoadWhitespaceOnlyYieldsZeroPages(t *testing.T) {
	pages, err := Load([]byte("   \n\t  "), "text/plain", "blank.txt")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("got %d pages, want 0 for whitespace-only input", len(pages))
	}
}

func TestLoadPDFPages(t *testing.T) {
	raw := testutil.BuildPDF([]string{
		"Course overview and grading policy.",
		"Week two covers cell division in detail.",
		"Reading list and office hours.",
	})

	pages, err := Load(raw, "application/pdf", "syllabus.pdf")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}

	for i, page := range pages {
		if page.Number != i+1 {
			t.Errorf("page %d has Number %d, want %d", i, page.Number, i+1)
		}
		if page.Filename != "syllabus.pdf" {
			t.Errorf("page %d filename = %q", i, page.Filename)
		}
	}
	if !strings.Contains(pages[1].Text, "cell division") {
		t.Errorf("page 2 text = %q, want the week-two content", pages[1].Text)
	}
}

func TestLoadCorruptPDF(t *testing.T) {
	if _, err := Load([]byte("definitely not a pdf"), "application/pdf", "broken.pdf"); err == nil {
		t.Error("expected parse error for corrupt PDF")
	}
}

// buildDocx assembles a minimal DOCX archive around the given document body.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadDOCX(t *testing.T) {
	body := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	pages, err := Load(buildDocx(t, body), TypeDOCX, "report.docx")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}

	text := pages[0].Text
	if !strings.Contains(text, "First paragraph.") {
		t.Errorf("missing first paragraph in %q", text)
	}
	if !strings.Contains(text, "Second paragraph.") {
		t.Errorf("split runs not joined in %q", text)
	}
	if pages[0].Number != 0 {
		t.Errorf("page number = %d, want 0 for docx", pages[0].Number)
	}
}

func TestLoadDOCXMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/styles.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("<styles/>")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(buf.Bytes(), TypeDOCX, "empty.docx"); err == nil {
		t.Error("expected error for docx without word/document.xml")
	}
}

func TestLoadDOCXNotAZip(t *testing.T) {
	if _, err := Load([]byte("plain bytes"), TypeDOCX, "fake.docx"); err == nil {
		t.Error("expected error for non-zip docx payload")
	}
}
