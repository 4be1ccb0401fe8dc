package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// mockRunner is a test double for CommandRunner. pdftoppm calls create
// pages empty PNG files; tesseract calls return the text mapped to the
// image's base name.
type mockRunner struct {
	mu    sync.Mutex
	pages int
	text  map[string]string
	err   map[string]error
	calls []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name+" "+strings.Join(args, " "))

	if err := m.err[name]; err != nil {
		return nil, err
	}
	switch name {
	case PDFToPPMBin:
		prefix := args[len(args)-1]
		for i := 1; i <= m.pages; i++ {
			file := prefix + "-" + padded(i, m.pages) + ".png"
			if err := os.WriteFile(file, nil, 0o600); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case TesseractBin:
		return []byte("  " + m.text[filepath.Base(args[0])] + "\n"), nil
	}
	return nil, errors.New("unexpected command " + name)
}

func padded(i, total int) string {
	return fmt.Sprintf("%0*d", len(strconv.Itoa(total)), i)
}

func TestNewWithRunner(t *testing.T) {
	runner := &mockRunner{}
	e := NewWithRunner(runner, WithLanguage("deu"), WithDPI(150))
	assert.Equal(t, runner, e.runner)
	assert.Equal(t, "deu", e.language)
	assert.Equal(t, 150, e.dpi)

	e = NewWithRunner(runner, WithLanguage(""), WithDPI(0))
	assert.Equal(t, DefaultLanguage, e.language)
	assert.Equal(t, DefaultDPI, e.dpi)
}

func TestExtractPages_Image(t *testing.T) {
	runner := &mockRunner{text: map[string]string{"scan.png": "Invoice total 42"}}
	e := NewWithRunner(runner)

	doc := domain.RawDocument{Filename: "scan.png", DocType: domain.DocTypeImage}
	pages, err := e.ExtractPages(context.Background(), doc, "/tmp/scan.png")
	require.NoError(t, err)
	require.Len(t, pages, 1)

	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, "Invoice total 42", pages[0].Text)
	assert.Equal(t, domain.ExtractionOCR, pages[0].ExtractionMethod)
	assert.True(t, pages[0].HasImages)
	assert.Equal(t, []string{"tesseract /tmp/scan.png stdout -l eng"}, runner.calls)
}

func TestExtractPages_PDFOrdersPages(t *testing.T) {
	text := map[string]string{}
	for i := 1; i <= 11; i++ {
		text["page-"+padded(i, 11)+".png"] = "page " + strconv.Itoa(i)
	}
	runner := &mockRunner{pages: 11, text: text}
	e := NewWithRunner(runner)

	doc := domain.RawDocument{Filename: "scan.pdf", DocType: domain.DocTypePDF}
	pages, err := e.ExtractPages(context.Background(), doc, "/tmp/scan.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 11)

	for i, p := range pages {
		assert.Equal(t, i+1, p.PageNumber)
		assert.Equal(t, "page "+strconv.Itoa(i+1), p.Text)
		assert.Equal(t, domain.ExtractionOCR, p.ExtractionMethod)
	}
	assert.True(t, strings.HasPrefix(runner.calls[0], "pdftoppm -r 300 -png /tmp/scan.pdf "))
}

func TestExtractPages_ToolErrors(t *testing.T) {
	doc := domain.RawDocument{Filename: "scan.pdf", DocType: domain.DocTypePDF}

	runner := &mockRunner{err: map[string]error{PDFToPPMBin: errors.New("bad pdf")}}
	_, err := NewWithRunner(runner).ExtractPages(context.Background(), doc, "x.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftoppm failed")

	runner = &mockRunner{pages: 1, err: map[string]error{TesseractBin: errors.New("crashed")}}
	_, err = NewWithRunner(runner).ExtractPages(context.Background(), doc, "x.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract failed")
}

func TestExtractPages_UnsupportedType(t *testing.T) {
	e := NewWithRunner(&mockRunner{})
	_, err := e.ExtractPages(context.Background(), domain.RawDocument{Filename: "a.txt"}, "a.txt")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestPageIndex(t *testing.T) {
	assert.Equal(t, 7, pageIndex("/tmp/x/page-07.png"))
	assert.Equal(t, 12, pageIndex("page-12.png"))
	assert.Equal(t, 0, pageIndex("page.png"))
	assert.Equal(t, 0, pageIndex("page-x1.png"))
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "tesseract")
	assert.Contains(t, instructions, "poppler")
}
