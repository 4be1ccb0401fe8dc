package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// documentRegistry implements driven.DocumentRegistry.
type documentRegistry struct {
	store *Store
}

var _ driven.DocumentRegistry = (*documentRegistry)(nil)

// childTables are cleared before a Put rewrites a document.
var childTables = []string{"pages", "blocks", "chunks", "embeddings", "doc_tables", "extractions"}

// Put replaces the registry entry for the document in a single transaction.
func (r *documentRegistry) Put(ctx context.Context, a *domain.DocumentArtifacts) error {
	if a == nil || a.Raw.ID == "" {
		return fmt.Errorf("%w: artifacts without document id", domain.ErrInvalidInput)
	}

	raw := a.Raw
	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, filename, path, size, content_type, doc_type, uploaded_at, status, error, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				filename = excluded.filename,
				path = excluded.path,
				size = excluded.size,
				content_type = excluded.content_type,
				doc_type = excluded.doc_type,
				uploaded_at = excluded.uploaded_at,
				status = excluded.status,
				error = excluded.error,
				updated_at = excluded.updated_at
		`, raw.ID, raw.Filename, raw.Path, raw.Size, raw.ContentType, string(raw.DocType),
			raw.UploadedAt.UTC(), string(a.Status), a.Error, updated.UTC()); err != nil {
			return fmt.Errorf("saving document: %w", err)
		}

		for _, table := range childTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE document_id = ?", raw.ID); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}

		for _, insert := range []func() error{
			func() error { return insertPages(ctx, tx, raw.ID, a.Pages) },
			func() error { return insertBlocks(ctx, tx, raw.ID, a.Blocks) },
			func() error { return insertChunks(ctx, tx, raw.ID, a.Chunks) },
			func() error { return insertEmbeddings(ctx, tx, raw.ID, a.Embeddings) },
			func() error { return insertTables(ctx, tx, raw.ID, a.Tables) },
			func() error { return insertExtractions(ctx, tx, raw.ID, a.Extractions) },
		} {
			if err := insert(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get loads a document and all of its child rows.
func (r *documentRegistry) Get(ctx context.Context, id string) (*domain.DocumentArtifacts, error) {
	db := r.store.db
	a := &domain.DocumentArtifacts{}
	var status, docType string

	err := db.QueryRowContext(ctx, `
		SELECT id, filename, path, size, content_type, doc_type, uploaded_at, status, error, updated_at
		FROM documents WHERE id = ?
	`, id).Scan(&a.Raw.ID, &a.Raw.Filename, &a.Raw.Path, &a.Raw.Size, &a.Raw.ContentType,
		&docType, &a.Raw.UploadedAt, &status, &a.Error, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	a.Raw.DocType = domain.DocType(docType)
	a.Status = domain.DocumentStatus(status)

	if a.Pages, err = loadPages(ctx, db, id); err != nil {
		return nil, err
	}
	if a.Blocks, err = loadBlocks(ctx, db, id); err != nil {
		return nil, err
	}
	if a.Chunks, err = loadChunks(ctx, db, id); err != nil {
		return nil, err
	}
	if a.Embeddings, err = loadEmbeddings(ctx, db, id); err != nil {
		return nil, err
	}
	if a.Tables, err = loadTables(ctx, db, id); err != nil {
		return nil, err
	}
	if a.Extractions, err = loadExtractions(ctx, db, id); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns summaries ordered by upload time, then id. Counts are
// computed in SQL so child rows are never loaded.
func (r *documentRegistry) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT d.id, d.filename, d.status, d.error, d.uploaded_at,
			(SELECT COUNT(*) FROM pages p WHERE p.document_id = d.id),
			(SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id),
			(SELECT COUNT(*) FROM blocks b WHERE b.document_id = d.id),
			(SELECT COUNT(*) FROM embeddings e WHERE e.document_id = d.id),
			(SELECT COUNT(*) FROM extractions x WHERE x.document_id = d.id),
			(SELECT COUNT(*) FROM doc_tables t WHERE t.document_id = d.id),
			(SELECT COUNT(DISTINCT extraction_method) FROM pages p WHERE p.document_id = d.id),
			(SELECT COALESCE(MIN(extraction_method), '') FROM pages p WHERE p.document_id = d.id)
		FROM documents d
		ORDER BY d.uploaded_at, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentSummary, 0)
	for rows.Next() {
		var s domain.DocumentSummary
		var status, method string
		var methods int
		if err := rows.Scan(&s.DocumentID, &s.Filename, &status, &s.Error, &s.UploadedAt,
			&s.Pages, &s.Chunks, &s.Blocks, &s.Embeddings, &s.Extractions, &s.Tables,
			&methods, &method); err != nil {
			return nil, fmt.Errorf("scanning document summary: %w", err)
		}
		s.Status = domain.DocumentStatus(status)
		switch {
		case methods == 0:
			s.ExtractionMethod = domain.ExtractionText
		case methods > 1:
			s.ExtractionMethod = domain.ExtractionHybrid
		default:
			s.ExtractionMethod = domain.ExtractionMethod(method)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return out, nil
}

func insertPages(ctx context.Context, tx *sql.Tx, id string, pages []domain.Page) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (document_id, page_number, text, extraction_method, has_images, has_tables)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing pages: %w", err)
	}
	defer stmt.Close()

	for _, p := range pages {
		if _, err := stmt.ExecContext(ctx, id, p.PageNumber, p.Text, string(p.ExtractionMethod),
			p.HasImages, p.HasTables); err != nil {
			return fmt.Errorf("saving page %d: %w", p.PageNumber, err)
		}
	}
	return nil
}

func insertBlocks(ctx context.Context, tx *sql.Tx, id string, blocks []domain.Block) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO blocks (document_id, position, id, page_number, block_type, text, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing blocks: %w", err)
	}
	defer stmt.Close()

	for i, b := range blocks {
		var metadata sql.NullString
		if len(b.Metadata) > 0 {
			data, err := json.Marshal(b.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling block metadata: %w", err)
			}
			metadata = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, i, b.ID, b.PageNumber, string(b.Type), b.Text, metadata); err != nil {
			return fmt.Errorf("saving block %s: %w", b.ID, err)
		}
	}
	return nil
}

func insertChunks(ctx context.Context, tx *sql.Tx, id string, chunks []domain.Chunk) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, position, page_number, text, char_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunks: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, id, i, c.PageNumber, c.Text, c.CharCount); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

func insertEmbeddings(ctx context.Context, tx *sql.Tx, id string, records []domain.EmbeddingRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (chunk_id, document_id, position, vector, model, dim, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing embeddings: %w", err)
	}
	defer stmt.Close()

	for i, e := range records {
		if _, err := stmt.ExecContext(ctx, e.ChunkID, id, i, float32SliceToBytes(e.Vector),
			e.Model, e.Dim, e.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("saving embedding %s: %w", e.ChunkID, err)
		}
	}
	return nil
}

func insertTables(ctx context.Context, tx *sql.Tx, id string, tables []domain.Table) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO doc_tables (document_id, position, page, table_index, data)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing tables: %w", err)
	}
	defer stmt.Close()

	for i, t := range tables {
		data, err := json.Marshal(t.Data)
		if err != nil {
			return fmt.Errorf("marshalling table data: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, t.Page, t.TableIndex, string(data)); err != nil {
			return fmt.Errorf("saving table %d on page %d: %w", t.TableIndex, t.Page, err)
		}
	}
	return nil
}

func insertExtractions(ctx context.Context, tx *sql.Tx, id string, extractions []domain.ExtractionResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO extractions (document_id, position, schema_name, payload, valid, errors)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing extractions: %w", err)
	}
	defer stmt.Close()

	for i, x := range extractions {
		payload, err := json.Marshal(x.Payload)
		if err != nil {
			return fmt.Errorf("marshalling extraction payload: %w", err)
		}
		errs, err := json.Marshal(x.Errors)
		if err != nil {
			return fmt.Errorf("marshalling extraction errors: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, x.SchemaName, string(payload), x.Valid, string(errs)); err != nil {
			return fmt.Errorf("saving extraction %s: %w", x.SchemaName, err)
		}
	}
	return nil
}

func loadPages(ctx context.Context, db *sql.DB, id string) ([]domain.Page, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT page_number, text, extraction_method, has_images, has_tables
		FROM pages WHERE document_id = ? ORDER BY page_number
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Page, 0)
	for rows.Next() {
		var p domain.Page
		var method string
		if err := rows.Scan(&p.PageNumber, &p.Text, &method, &p.HasImages, &p.HasTables); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		p.ExtractionMethod = domain.ExtractionMethod(method)
		out = append(out, p)
	}
	return out, rows.Err()
}

func loadBlocks(ctx context.Context, db *sql.DB, id string) ([]domain.Block, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, page_number, block_type, text, metadata
		FROM blocks WHERE document_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying blocks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Block, 0)
	for rows.Next() {
		var b domain.Block
		var blockType string
		var metadata sql.NullString
		if err := rows.Scan(&b.ID, &b.PageNumber, &blockType, &b.Text, &metadata); err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		b.Type = domain.BlockType(blockType)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &b.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling block metadata: %w", err)
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func loadChunks(ctx context.Context, db *sql.DB, id string) ([]domain.Chunk, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, page_number, text, char_count
		FROM chunks WHERE document_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Chunk, 0)
	for rows.Next() {
		c := domain.Chunk{DocumentID: id}
		if err := rows.Scan(&c.ID, &c.PageNumber, &c.Text, &c.CharCount); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func loadEmbeddings(ctx context.Context, db *sql.DB, id string) ([]domain.EmbeddingRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT chunk_id, vector, model, dim, created_at
		FROM embeddings WHERE document_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.EmbeddingRecord, 0)
	for rows.Next() {
		e := domain.EmbeddingRecord{DocumentID: id}
		var blob []byte
		if err := rows.Scan(&e.ChunkID, &blob, &e.Model, &e.Dim, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		e.Vector = bytesToFloat32Slice(blob)
		out = append(out, e)
	}
	return out, rows.Err()
}

func loadTables(ctx context.Context, db *sql.DB, id string) ([]domain.Table, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT page, table_index, data
		FROM doc_tables WHERE document_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Table, 0)
	for rows.Next() {
		var page, index int
		var data string
		if err := rows.Scan(&page, &index, &data); err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		var cells [][]string
		if err := json.Unmarshal([]byte(data), &cells); err != nil {
			return nil, fmt.Errorf("unmarshalling table data: %w", err)
		}
		out = append(out, domain.NewTable(page, index, cells))
	}
	return out, rows.Err()
}

func loadExtractions(ctx context.Context, db *sql.DB, id string) ([]domain.ExtractionResult, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT schema_name, payload, valid, errors
		FROM extractions WHERE document_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying extractions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExtractionResult, 0)
	for rows.Next() {
		var x domain.ExtractionResult
		var payload string
		var errs sql.NullString
		if err := rows.Scan(&x.SchemaName, &payload, &x.Valid, &errs); err != nil {
			return nil, fmt.Errorf("scanning extraction: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &x.Payload); err != nil {
			return nil, fmt.Errorf("unmarshalling extraction payload: %w", err)
		}
		if errs.Valid && errs.String != "" {
			if err := json.Unmarshal([]byte(errs.String), &x.Errors); err != nil {
				return nil, fmt.Errorf("unmarshalling extraction errors: %w", err)
			}
		}
		out = append(out, x)
	}
	return out, rows.Err()
}
