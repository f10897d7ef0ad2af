// Package extractor turns stored files into best-effort plain text.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"file-organizer/backend/go/pkg/logger"

	"github.com/ledongthuc/pdf"
)

// Extractor maps a file on disk to text. It never fails: unsupported types and
// internal errors both yield "".
type Extractor interface {
	Extract(ctx context.Context, path, mimeType string) string
}

// OCR recognises text in an image file.
type OCR interface {
	Recognize(ctx context.Context, path, lang string) (string, error)
}

const ocrLanguage = "eng"

// ContentExtractor dispatches on MIME type and extension.
type ContentExtractor struct {
	ocr OCR
	log *logger.Logger
}

var _ Extractor = (*ContentExtractor)(nil)

// New creates a ContentExtractor. A nil ocr disables image extraction.
func New(ocr OCR, log *logger.Logger) *ContentExtractor {
	return &ContentExtractor{ocr: ocr, log: log}
}

func (e *ContentExtractor) Extract(ctx context.Context, path, mimeType string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn(fmt.Sprintf("extractor panic on %s: %v", filepath.Base(path), r))
			text = ""
		}
	}()

	var err error
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		text, err = readText(path)
	case mimeType == "application/pdf" || strings.EqualFold(filepath.Ext(path), ".pdf"):
		text, err = readPDF(path)
	case strings.HasPrefix(mimeType, "image/"):
		if e.ocr == nil {
			return ""
		}
		text, err = e.ocr.Recognize(ctx, path, ocrLanguage)
	default:
		return ""
	}
	if err != nil {
		e.log.Warn(fmt.Sprintf("content extraction failed for %s (%s): %v", filepath.Base(path), mimeType, err))
		return ""
	}
	return strings.TrimSpace(text)
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// TesseractOCR shells out to the tesseract binary.
type TesseractOCR struct {
	Binary string
}

func (t TesseractOCR) Recognize(ctx context.Context, path, lang string) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, path, "stdout", "-l", lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
