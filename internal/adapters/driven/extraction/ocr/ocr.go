// Package ocr extracts page text by running tesseract, rasterising PDFs
// with pdftoppm first.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// Tool names.
const (
	TesseractBin = "tesseract"
	PDFToPPMBin  = "pdftoppm"
)

// Defaults.
const (
	DefaultLanguage = "eng"
	DefaultDPI      = 300
)

// ErrToolNotFound is returned when tesseract or pdftoppm is not installed.
var ErrToolNotFound = errors.New("ocr: tesseract or pdftoppm not found in PATH")

// CommandRunner executes external commands. It exists so tests can
// substitute the OCR tools.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Extractor runs OCR over images and rasterised PDF pages.
type Extractor struct {
	runner   CommandRunner
	language string
	dpi      int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLanguage sets the tesseract language code.
func WithLanguage(lang string) Option {
	return func(e *Extractor) {
		if lang != "" {
			e.language = lang
		}
	}
}

// WithDPI sets the rasterisation resolution for PDFs.
func WithDPI(dpi int) Option {
	return func(e *Extractor) {
		if dpi > 0 {
			e.dpi = dpi
		}
	}
}

// New creates an Extractor that runs the installed tools.
func New(opts ...Option) *Extractor {
	return NewWithRunner(execRunner{}, opts...)
}

// NewWithRunner creates an Extractor with a custom command runner.
func NewWithRunner(runner CommandRunner, opts ...Option) *Extractor {
	e := &Extractor{runner: runner, language: DefaultLanguage, dpi: DefaultDPI}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckAvailable reports whether the OCR tools are on PATH.
func CheckAvailable() error {
	for _, bin := range []string{TesseractBin, PDFToPPMBin} {
		if _, err := exec.LookPath(bin); err != nil {
			return ErrToolNotFound
		}
	}
	return nil
}

// InstallInstructions returns platform hints for installing the tools.
func InstallInstructions() string {
	return `OCR requires tesseract and pdftoppm (poppler).

  macOS:          brew install tesseract poppler
  Debian/Ubuntu:  apt install tesseract-ocr poppler-utils
  Fedora:         dnf install tesseract poppler-utils`
}

// ExtractPages returns one OCR page per image, or one per PDF page.
func (e *Extractor) ExtractPages(ctx context.Context, doc domain.RawDocument, path string) ([]domain.Page, error) {
	switch doc.DocType {
	case domain.DocTypeImage:
		text, err := e.Image(ctx, path)
		if err != nil {
			return nil, err
		}
		return []domain.Page{{
			PageNumber:       1,
			Text:             text,
			ExtractionMethod: domain.ExtractionOCR,
			HasImages:        true,
		}}, nil
	case domain.DocTypePDF:
		texts, err := e.PDF(ctx, path)
		if err != nil {
			return nil, err
		}
		pages := make([]domain.Page, len(texts))
		for i, text := range texts {
			pages[i] = domain.Page{
				PageNumber:       i + 1,
				Text:             text,
				ExtractionMethod: domain.ExtractionOCR,
			}
		}
		return pages, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, doc.Filename)
	}
}

// Image runs tesseract on a single image file.
func (e *Extractor) Image(ctx context.Context, path string) (string, error) {
	out, err := e.runner.Run(ctx, TesseractBin, path, "stdout", "-l", e.language)
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// PDF rasterises every page and returns the OCR text per page in order.
func (e *Extractor) PDF(ctx context.Context, path string) ([]string, error) {
	dir, err := os.MkdirTemp("", "docintel-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create ocr work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	if _, err := e.runner.Run(ctx, PDFToPPMBin, "-r", fmt.Sprint(e.dpi), "-png", path, prefix); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w", err)
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, fmt.Errorf("list rasterised pages: %w", err)
	}
	sort.Slice(images, func(i, j int) bool { return pageIndex(images[i]) < pageIndex(images[j]) })
	logger.Debug("ocr: rasterised %d pages from %s", len(images), filepath.Base(path))

	texts := make([]string, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := e.Image(ctx, img)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// pageIndex parses the page number pdftoppm appends to each image name.
func pageIndex(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	i := strings.LastIndexByte(base, '-')
	if i < 0 {
		return 0
	}
	n := 0
	for _, r := range base[i+1:] {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
