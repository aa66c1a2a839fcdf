// Package extract reads the source text of a document from disk.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNoText is returned when a document yields no text after sanitising.
	ErrNoText = errors.New("document contains no extractable text")

	// ErrUnsupportedFormat is returned for file extensions that cannot be read.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// FromFile returns the sanitised text of the document at path. Plain text
// and markdown files are read directly; PDFs are converted to plain text.
func FromFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md", ".markdown", "":
		text, err = readText(path)
	case ".pdf":
		text, err = readPDF(path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", err
	}

	text = Sanitize(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrNoText, filepath.Base(path))
	}
	return text, nil
}

// Sanitize removes NUL bytes, normalises line endings to \n and trims
// surrounding whitespace.
func Sanitize(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}

func readPDF(path string) (text string, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract pdf text: malformed document: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return buf.String(), nil
}
