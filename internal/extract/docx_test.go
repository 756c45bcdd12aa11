package extract

import (
	"archive/zip"
	"bytes"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	f, err := writer.Create("word/document.xml")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	doc := buildDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := ExtractDocx(doc)
	if err != nil {
		t.Fatalf("ExtractDocx failed: %v", err)
	}
	want := "First paragraph.\nSecond paragraph."
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

func TestExtractDocxNotAZip(t *testing.T) {
	if _, err := ExtractDocx([]byte("plain text, not a zip")); err == nil {
		t.Fatal("expected error for non-zip input")
	}
}

func TestExtractDocxMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	f, _ := writer.Create("word/styles.xml")
	f.Write([]byte("<styles/>"))
	writer.Close()

	if _, err := ExtractDocx(buf.Bytes()); err == nil {
		t.Fatal("expected error when document.xml is absent")
	}
}
