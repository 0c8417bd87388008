// Package parser extracts plain text from document files.
//
// Supported types: .txt and .md are read directly, .html/.htm go through
// goquery text extraction, .pdf and .docx are converted with docconv.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrParse indicates the file could not be read or converted.
	ErrParse = errors.New("parse failed")

	// ErrUnsupportedType indicates the file extension is not handled.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrEmptyContent indicates parsing succeeded but produced no text.
	ErrEmptyContent = errors.New("empty content")
)

// MaxFileSize bounds the file size accepted for parsing.
const MaxFileSize = 50 * 1024 * 1024 // 50MB

// Parser extracts text from local files by extension.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser.
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse extracts plain text from the file at path.
// Fails with ErrUnsupportedType for unknown extensions, ErrParse for
// unreadable or unconvertible files, and ErrEmptyContent when the file
// yields only whitespace.
func (p *Parser) Parse(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: stat %s: %v", ErrParse, path, err)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrParse, path, MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(path))

	var text string
	switch ext {
	case ".txt", ".md":
		text, err = p.parsePlain(path)
	case ".html", ".htm":
		text, err = p.parseHTML(path)
	case ".pdf", ".docx":
		text, err = p.parseDocconv(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyContent, path)
	}

	p.logger.Debug("parsed document", "path", path, "type", ext, "chars", len(text))
	return text, nil
}

func (p *Parser) parsePlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrParse, path, err)
	}
	return string(data), nil
}

func (p *Parser) parseHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrParse, path, err)
	}
	defer func() { _ = f.Close() }()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("%w: parse html %s: %v", ErrParse, path, err)
	}

	// Scripts and styles contribute no document text.
	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		sb.WriteString(sel.Text())
	})
	if sb.Len() == 0 {
		// Fragment without a body element.
		sb.WriteString(doc.Text())
	}

	return normalizeWhitespace(sb.String()), nil
}

func (p *Parser) parseDocconv(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: convert %s: %v", ErrParse, path, err)
	}
	return res.Body, nil
}

// normalizeWhitespace collapses runs of blank lines and trims each line,
// which keeps chunk boundaries stable for HTML-derived text.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
