// Package bolt persists vector index rows in a bbolt database.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure Persister implements the interface.
var _ driven.IndexPersister = (*Persister)(nil)

var (
	bucketMeta     = []byte("meta")
	bucketVectors  = []byte("vectors")
	bucketMetadata = []byte("metadata")

	keyDim = []byte("dim")
)

// DefaultFileName is the database file created inside the index directory.
const DefaultFileName = "index.bolt"

// Persister stores each row under its big-endian row number in a vectors
// and a metadata bucket. Both are written in one transaction per Append.
type Persister struct {
	db *bbolt.DB
}

// NewPersister opens or creates the database at path.
func NewPersister(path string) (*Persister, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt index: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketVectors, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Persister{db: db}, nil
}

// Load reads every row in key order.
func (p *Persister) Load(_ context.Context) (driven.IndexSnapshot, error) {
	var snap driven.IndexSnapshot

	err := p.db.View(func(tx *bbolt.Tx) error {
		if raw := tx.Bucket(bucketMeta).Get(keyDim); raw != nil {
			snap.Dim = int(binary.BigEndian.Uint64(raw))
		}

		vb := tx.Bucket(bucketVectors)
		mb := tx.Bucket(bucketMetadata)
		if vb.Stats().KeyN != mb.Stats().KeyN {
			return fmt.Errorf("%w: %d vectors, %d metadata rows",
				domain.ErrCorruptIndex, vb.Stats().KeyN, mb.Stats().KeyN)
		}

		row := uint64(0)
		err := vb.ForEach(func(k, v []byte) error {
			if binary.BigEndian.Uint64(k) != row {
				return fmt.Errorf("%w: missing row %d", domain.ErrCorruptIndex, row)
			}
			vec, err := decodeVector(v, snap.Dim)
			if err != nil {
				return fmt.Errorf("row %d: %w", row, err)
			}

			data := mb.Get(k)
			if data == nil {
				return fmt.Errorf("%w: row %d has no metadata", domain.ErrCorruptIndex, row)
			}
			var m domain.IndexMetadata
			if err := json.Unmarshal(data, &m); err != nil {
				return fmt.Errorf("%w: metadata row %d: %w", domain.ErrCorruptIndex, row, err)
			}

			snap.Vectors = append(snap.Vectors, vec)
			snap.Metadata = append(snap.Metadata, m)
			row++
			return nil
		})
		return err
	})
	if err != nil {
		return driven.IndexSnapshot{}, err
	}
	return snap, nil
}

// Append writes rows starting at from in a single transaction.
func (p *Persister) Append(
	_ context.Context,
	from, dim int,
	vectors [][]float32,
	metas []domain.IndexMetadata,
) error {
	if len(vectors) != len(metas) {
		return fmt.Errorf("%w: %d vectors, %d metadata", domain.ErrLengthMismatch, len(vectors), len(metas))
	}

	return p.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		vb := tx.Bucket(bucketVectors)
		mb := tx.Bucket(bucketMetadata)

		if rows := vb.Stats().KeyN; rows != from {
			return fmt.Errorf("append at row %d but %d rows are stored", from, rows)
		}
		if raw := meta.Get(keyDim); raw != nil {
			if stored := int(binary.BigEndian.Uint64(raw)); stored != dim {
				return fmt.Errorf("%w: stored dimension %d, got %d", domain.ErrDimensionMismatch, stored, dim)
			}
		} else if err := meta.Put(keyDim, rowKey(dim)); err != nil {
			return err
		}

		for i := range vectors {
			key := rowKey(from + i)
			if err := vb.Put(key, encodeVector(vectors[i])); err != nil {
				return fmt.Errorf("put vector %d: %w", from+i, err)
			}
			data, err := json.Marshal(metas[i])
			if err != nil {
				return fmt.Errorf("marshal metadata %d: %w", from+i, err)
			}
			if err := mb.Put(key, data); err != nil {
				return fmt.Errorf("put metadata %d: %w", from+i, err)
			}
		}
		return nil
	})
}

// Close closes the database.
func (p *Persister) Close() error {
	return p.db.Close()
}

func rowKey(n int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(n))
	return key
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float32, error) {
	if len(buf) != dim*4 {
		return nil, fmt.Errorf("%w: vector has %d bytes, want %d", domain.ErrCorruptIndex, len(buf), dim*4)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}
