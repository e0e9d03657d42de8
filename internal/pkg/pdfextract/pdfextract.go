package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyInput = errors.New("pdf input is empty")

// Extractor satisfies the service's text extraction contract.
type Extractor struct{}

func (Extractor) ExtractFile(path string) (string, error) {
	return ExtractFile(path)
}

// ExtractFile opens the PDF at path and returns the text of all pages.
func ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	defer f.Close()
	return ExtractText(f)
}

// ExtractText reads the entire content of r and extracts plain text from the PDF.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) == 0 {
		return "", ErrEmptyInput
	}
	return extract(bytes.NewReader(b), int64(len(b)))
}

// extract concatenates page text in page order. Pages without text are skipped.
func extract(ra io.ReaderAt, size int64) (text string, err error) {
	// The parser panics on some malformed inputs instead of returning errors.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf failed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(ra, size)
	if err != nil {
		return "", fmt.Errorf("parse pdf failed: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d failed: %w", i, err)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}
