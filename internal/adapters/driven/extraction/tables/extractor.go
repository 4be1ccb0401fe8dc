// Package tables finds column-aligned tables in extracted page text.
package tables

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TableExtractor = (*Extractor)(nil)

// Defaults.
const (
	DefaultMinRows    = 2
	DefaultMinColumns = 2
)

// columnGap separates cells in whitespace-aligned rows.
var columnGap = regexp.MustCompile(`\t+|\s{2,}`)

// separatorRow matches markdown rules such as "---|:---:".
var separatorRow = regexp.MustCompile(`^[\s|:+-]+$`)

// Extractor detects runs of consecutive lines that split into the same
// number of cells, either on "|" or on runs of two or more spaces.
type Extractor struct {
	minRows    int
	minColumns int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMinRows sets the minimum number of rows a table must have.
func WithMinRows(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.minRows = n
		}
	}
}

// WithMinColumns sets the minimum number of cells per row.
func WithMinColumns(n int) Option {
	return func(e *Extractor) {
		if n > 1 {
			e.minColumns = n
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{minRows: DefaultMinRows, minColumns: DefaultMinColumns}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractTables scans every page and returns tables in page order.
func (e *Extractor) ExtractTables(ctx context.Context, _ domain.RawDocument, pages []domain.Page) ([]domain.Table, error) {
	out := make([]domain.Table, 0)
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, data := range e.findTables(page.Text) {
			out = append(out, domain.NewTable(page.PageNumber, i, data))
		}
	}
	return out, nil
}

func (e *Extractor) findTables(text string) [][][]string {
	var (
		tables  [][][]string
		current [][]string
	)
	flush := func() {
		if len(current) >= e.minRows {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && strings.Contains(trimmed, "|") && separatorRow.MatchString(trimmed) {
			continue
		}
		cells := splitRow(trimmed)
		if len(cells) < e.minColumns {
			flush()
			continue
		}
		if len(current) > 0 && len(current[0]) != len(cells) {
			flush()
		}
		current = append(current, cells)
	}
	flush()
	return tables
}

func splitRow(line string) []string {
	if line == "" {
		return nil
	}
	var parts []string
	if strings.Contains(line, "|") {
		parts = strings.Split(strings.Trim(line, "|"), "|")
	} else {
		parts = columnGap.Split(line, -1)
	}
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}
