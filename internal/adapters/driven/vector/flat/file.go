package flat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure FilePersister implements the interface.
var _ driven.IndexPersister = (*FilePersister)(nil)

// File names inside the index directory.
const (
	VectorsFile  = "vectors.f32"
	MetadataFile = "metadata.jsonl"
	ManifestFile = "manifest.json"

	// vectors.f32 header:
	//   0..7   magic "DIVEC001"
	//   8..15  dim (uint64, little endian)
	vectorHeaderSize = 16
	float32Size      = 4
	manifestVersion  = 1
)

var vectorMagic = [8]byte{'D', 'I', 'V', 'E', 'C', '0', '0', '1'}

// manifest is the commit record. Bytes past the committed lengths in the
// data files belong to an append that never committed.
type manifest struct {
	Version       int       `json:"version"`
	Dim           int       `json:"dim"`
	Rows          int       `json:"rows"`
	MetadataBytes int64     `json:"metadata_bytes"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FilePersister stores index rows as a raw float32 file and a row-aligned
// JSON Lines metadata file in one directory. An append writes both data
// files, syncs them, then atomically replaces manifest.json; the manifest
// rename is the commit point for vectors and metadata together.
type FilePersister struct {
	mu     sync.Mutex
	dir    string
	man    manifest
	loaded bool
}

// NewFilePersister creates a persister rooted at dir, creating it if needed.
func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	return &FilePersister{dir: dir}, nil
}

// Dir returns the index directory.
func (p *FilePersister) Dir() string {
	return p.dir
}

// Load reads all committed rows.
func (p *FilePersister) Load(_ context.Context) (driven.IndexSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.readManifest(); err != nil {
		return driven.IndexSnapshot{}, err
	}
	if p.man.Rows == 0 {
		return driven.IndexSnapshot{Dim: p.man.Dim}, nil
	}

	vectors, err := p.readVectors()
	if err != nil {
		return driven.IndexSnapshot{}, err
	}
	metas, err := p.readMetadata()
	if err != nil {
		return driven.IndexSnapshot{}, err
	}
	if len(metas) != len(vectors) {
		return driven.IndexSnapshot{}, fmt.Errorf("%w: %d vectors, %d metadata rows",
			domain.ErrCorruptIndex, len(vectors), len(metas))
	}

	return driven.IndexSnapshot{Dim: p.man.Dim, Vectors: vectors, Metadata: metas}, nil
}

// Append writes rows from position from and commits them.
func (p *FilePersister) Append(
	_ context.Context,
	from, dim int,
	vectors [][]float32,
	metas []domain.IndexMetadata,
) error {
	if len(vectors) != len(metas) {
		return fmt.Errorf("%w: %d vectors, %d metadata", domain.ErrLengthMismatch, len(vectors), len(metas))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		if err := p.readManifest(); err != nil {
			return err
		}
	}
	if from != p.man.Rows {
		return fmt.Errorf("append at row %d but %d rows are committed", from, p.man.Rows)
	}
	if p.man.Rows > 0 && p.man.Dim != dim {
		return fmt.Errorf("%w: stored dimension %d, got %d", domain.ErrDimensionMismatch, p.man.Dim, dim)
	}

	if err := p.appendVectors(dim, vectors); err != nil {
		return err
	}
	written, err := p.appendMetadata(metas)
	if err != nil {
		return err
	}

	next := manifest{
		Version:       manifestVersion,
		Dim:           dim,
		Rows:          p.man.Rows + len(vectors),
		MetadataBytes: p.man.MetadataBytes + written,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := p.writeManifest(next); err != nil {
		return err
	}
	p.man = next
	return nil
}

// Close is a no-op; files are closed after every operation.
func (p *FilePersister) Close() error {
	return nil
}

func (p *FilePersister) path(name string) string {
	return filepath.Join(p.dir, name)
}

// readManifest loads the commit record. A missing manifest means no rows.
func (p *FilePersister) readManifest() error {
	data, err := os.ReadFile(p.path(ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		p.man = manifest{Version: manifestVersion}
		p.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: manifest: %w", domain.ErrCorruptIndex, err)
	}
	if m.Rows < 0 || m.MetadataBytes < 0 || (m.Rows > 0 && m.Dim <= 0) {
		return fmt.Errorf("%w: manifest rows=%d dim=%d", domain.ErrCorruptIndex, m.Rows, m.Dim)
	}
	p.man = m
	p.loaded = true
	return nil
}

func (p *FilePersister) writeManifest(m manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp := p.path(ManifestFile + ".tmp")
	if err := writeFileSync(tmp, data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, p.path(ManifestFile)); err != nil {
		return fmt.Errorf("commit manifest: %w", err)
	}
	return syncDir(p.dir)
}

func (p *FilePersister) readVectors() ([][]float32, error) {
	f, err := os.Open(p.path(VectorsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: open vectors: %w", domain.ErrCorruptIndex, err)
	}
	defer f.Close()

	var header [vectorHeaderSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, fmt.Errorf("%w: vectors header: %w", domain.ErrCorruptIndex, err)
	}
	var magic [8]byte
	copy(magic[:], header[:8])
	if magic != vectorMagic {
		return nil, fmt.Errorf("%w: vectors header magic mismatch", domain.ErrCorruptIndex)
	}
	if dim := int(binary.LittleEndian.Uint64(header[8:16])); dim != p.man.Dim {
		return nil, fmt.Errorf("%w: vectors file dim %d, manifest dim %d", domain.ErrCorruptIndex, dim, p.man.Dim)
	}

	rowBytes := p.man.Dim * float32Size
	buf := make([]byte, p.man.Rows*rowBytes)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%w: manifest has %d rows, vectors file is short: %w",
			domain.ErrCorruptIndex, p.man.Rows, err)
	}

	vectors := make([][]float32, p.man.Rows)
	for r := range vectors {
		row := make([]float32, p.man.Dim)
		base := r * rowBytes
		for i := range row {
			bits := binary.LittleEndian.Uint32(buf[base+i*float32Size:])
			row[i] = math.Float32frombits(bits)
		}
		vectors[r] = row
	}
	return vectors, nil
}

func (p *FilePersister) readMetadata() ([]domain.IndexMetadata, error) {
	f, err := os.Open(p.path(MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("%w: open metadata: %w", domain.ErrCorruptIndex, err)
	}
	defer f.Close()

	buf := make([]byte, p.man.MetadataBytes)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%w: metadata file is short: %w", domain.ErrCorruptIndex, err)
	}

	metas := make([]domain.IndexMetadata, 0, p.man.Rows)
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var m domain.IndexMetadata
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("%w: metadata row %d: %w", domain.ErrCorruptIndex, len(metas), err)
		}
		metas = append(metas, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan metadata: %w", domain.ErrCorruptIndex, err)
	}
	return metas, nil
}

// appendVectors truncates any uncommitted tail and writes the new rows.
func (p *FilePersister) appendVectors(dim int, vectors [][]float32) error {
	f, err := os.OpenFile(p.path(VectorsFile), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("open vectors: %w", err)
	}
	defer f.Close()

	offset := int64(vectorHeaderSize + p.man.Rows*dim*float32Size)
	if err := f.Truncate(offset); err != nil {
		return fmt.Errorf("truncate vectors: %w", err)
	}

	var header [vectorHeaderSize]byte
	copy(header[:8], vectorMagic[:])
	binary.LittleEndian.PutUint64(header[8:16], uint64(dim))
	if _, err := f.WriteAt(header[:], 0); err != nil {
		return fmt.Errorf("write vectors header: %w", err)
	}

	buf := make([]byte, len(vectors)*dim*float32Size)
	for r, v := range vectors {
		base := r * dim * float32Size
		for i, x := range v {
			binary.LittleEndian.PutUint32(buf[base+i*float32Size:], math.Float32bits(x))
		}
	}
	if _, err := f.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync vectors: %w", err)
	}
	return nil
}

// appendMetadata truncates any uncommitted tail and writes one JSON line per row.
func (p *FilePersister) appendMetadata(metas []domain.IndexMetadata) (int64, error) {
	f, err := os.OpenFile(p.path(MetadataFile), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return 0, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(p.man.MetadataBytes); err != nil {
		return 0, fmt.Errorf("truncate metadata: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range metas {
		if err := enc.Encode(metas[i]); err != nil {
			return 0, fmt.Errorf("encode metadata: %w", err)
		}
	}
	if _, err := f.WriteAt(buf.Bytes(), p.man.MetadataBytes); err != nil {
		return 0, fmt.Errorf("write metadata: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync metadata: %w", err)
	}
	return int64(buf.Len()), nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// syncDir flushes a directory entry change. Some platforms cannot fsync a
// directory; that failure is ignored.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer d.Close()
	_ = d.Sync()
	return nil
}
