// Package pdf exports a markdown prescription as a plain-text PDF.
package pdf

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// FileName is the name offered for downloads.
const FileName = "receituario-medico.pdf"

// jsPDF's default line height factor.
const lineHeightFactor = 1.15

// Options is the page layout, in millimetres and points.
type Options struct {
	FontFamily string
	FontSize   float64
	Left       float64
	Top        float64
	Width      float64
}

func DefaultOptions() Options {
	return Options{FontFamily: "Helvetica", FontSize: 12, Left: 15, Top: 20, Width: 180}
}

// Exporter renders markdown as plain paragraphs on A4 pages. Formatting is
// deliberately discarded; only the text survives.
type Exporter struct {
	opts     Options
	md       goldmark.Markdown
	sanitize *bluemonday.Policy
	strip    *bluemonday.Policy
}

func New(opts Options) *Exporter {
	def := DefaultOptions()
	if opts.FontFamily == "" {
		opts.FontFamily = def.FontFamily
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	return &Exporter{
		opts:     opts,
		// raw HTML is kept so the sanitizer, not the markdown renderer, decides what survives
		md:       goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe())),
		sanitize: bluemonday.UGCPolicy(),
		strip:    bluemonday.StrictPolicy(),
	}
}

// ToPlainText converts markdown to HTML, sanitizes it, then drops every tag.
// Script and style content never reaches the output.
func (e *Exporter) ToPlainText(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	safe := e.sanitize.SanitizeBytes(buf.Bytes())
	text := html.UnescapeString(string(e.strip.SanitizeBytes(safe)))
	return strings.TrimRight(text, "\n"), nil
}

// Render returns the complete PDF document.
func (e *Exporter) Render(markdown string) ([]byte, error) {
	text, err := e.ToPlainText(markdown)
	if err != nil {
		return nil, err
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	pageW, _ := doc.GetPageSize()
	doc.SetMargins(e.opts.Left, e.opts.Top, pageW-e.opts.Left-e.opts.Width)
	doc.SetAutoPageBreak(true, e.opts.Top)
	doc.AddPage()
	doc.SetFont(e.opts.FontFamily, "", e.opts.FontSize)
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	// core fonts are cp1252, which covers Portuguese
	tr := doc.UnicodeTranslatorFromDescriptor("")
	_, fontHeight := doc.GetFontSize()
	doc.SetXY(e.opts.Left, e.opts.Top)
	doc.MultiCell(e.opts.Width, fontHeight*lineHeightFactor, tr(text), "", "L", false)

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return out.Bytes(), nil
}

// Export writes the document to w. Nothing is written when rendering fails.
func (e *Exporter) Export(w io.Writer, markdown string) error {
	data, err := e.Render(markdown)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile renders markdown into path, replacing it atomically.
func (e *Exporter) WriteFile(path, markdown string) error {
	data, err := e.Render(markdown)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
