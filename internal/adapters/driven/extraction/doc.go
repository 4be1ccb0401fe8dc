// Package extraction groups the page and table extractors used by the
// ingestion pipeline.
//
// The pdftext package reads embedded PDF text with github.com/ledongthuc/pdf.
// The ocr package shells out to tesseract and pdftoppm. The hybrid package
// combines the two, falling back to OCR for pages with almost no text. The
// tables package finds column-aligned tables in extracted page text.
package extraction
