package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// SQLiteMetadataStore persists documents, chunks, and embeddings in SQLite.
// Keeping embeddings alongside the chunk text means an index reload never
// re-reads sources or re-embeds.
type SQLiteMetadataStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	path       TEXT NOT NULL UNIQUE,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	is_code    INTEGER NOT NULL DEFAULT 0,
	metadata   TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	doc_id       TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL UNIQUE,
	path         TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	start_offset INTEGER NOT NULL,
	text         TEXT NOT NULL,
	is_code      INTEGER NOT NULL DEFAULT 0,
	metadata     TEXT
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);

CREATE TABLE IF NOT EXISTS embeddings (
	chunk_id TEXT PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
	model    TEXT NOT NULL,
	dims     INTEGER NOT NULL,
	vector   BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// NewSQLiteMetadataStore opens or creates the metadata database at path.
func NewSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}

	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLiteMetadataStore{db: db, path: path}
	if err := s.SetState(context.Background(), StateKeySchemaVersion, strconv.Itoa(CurrentSchemaVersion)); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SaveDocuments replaces all stored documents with the given set. A
// rebuild writes the whole corpus, so rows for files removed from the
// docs tree must not survive.
func (s *SQLiteMetadataStore) SaveDocuments(ctx context.Context, docs []*Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, path, title, content, is_code, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare document insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		meta, err := marshalMetadata(doc.Metadata)
		if err != nil {
			return err
		}
		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.Path, doc.Title, doc.Content,
			boolToInt(doc.IsCode), meta, createdAt); err != nil {
			return fmt.Errorf("save document %s: %w", doc.Path, err)
		}
	}

	return tx.Commit()
}

// SaveChunks replaces all stored chunks with the given set. Chunks belong to
// exactly one build, so a rebuild always writes the full set.
func (s *SQLiteMetadataStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, doc_id, seq, path, title, start_offset, text, is_code, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		meta, err := marshalMetadata(c.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocID, c.Seq, c.Path, c.Title,
			c.Start, c.Text, boolToInt(c.IsCode), meta); err != nil {
			return fmt.Errorf("save chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// SaveEmbeddings upserts chunk embeddings as little-endian float32 blobs.
func (s *SQLiteMetadataStore) SaveEmbeddings(ctx context.Context, chunkIDs []string, vectors [][]float32, model string) error {
	if len(chunkIDs) != len(vectors) {
		return fmt.Errorf("chunk IDs and vectors length mismatch: %d vs %d", len(chunkIDs), len(vectors))
	}
	if len(chunkIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (chunk_id, model, dims, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			model = excluded.model,
			dims = excluded.dims,
			vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("prepare embedding upsert: %w", err)
	}
	defer stmt.Close()

	for i, id := range chunkIDs {
		if _, err := stmt.ExecContext(ctx, id, model, len(vectors[i]), encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("save embedding for %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// LoadDocuments returns all documents ordered by path.
func (s *SQLiteMetadataStore) LoadDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, title, content, is_code, metadata, created_at
		FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var (
			doc    Document
			isCode int
			meta   sql.NullString
		)
		if err := rows.Scan(&doc.ID, &doc.Path, &doc.Title, &doc.Content, &isCode, &meta, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.IsCode = isCode != 0
		if doc.Metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// LoadChunks returns all chunks ordered by ingestion ordinal.
func (s *SQLiteMetadataStore) LoadChunks(ctx context.Context) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_id, seq, path, title, start_offset, text, is_code, metadata
		FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		var (
			c      Chunk
			isCode int
			meta   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.DocID, &c.Seq, &c.Path, &c.Title, &c.Start, &c.Text, &isCode, &meta); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.IsCode = isCode != 0
		if c.Metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// GetAllEmbeddings returns all stored embeddings keyed by chunk ID.
func (s *SQLiteMetadataStore) GetAllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT chunk_id, vector FROM embeddings")
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	embeddings := make(map[string][]float32)
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", id, err)
		}
		embeddings[id] = vec
	}
	return embeddings, rows.Err()
}

// GetState reads a manifest value. Missing keys return an empty string.
func (s *SQLiteMetadataStore) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

// SetState writes a manifest value.
func (s *SQLiteMetadataStore) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// Stats returns row counts for status reporting.
func (s *SQLiteMetadataStore) Stats(ctx context.Context) (*StoreStats, error) {
	stats := &StoreStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM chunks", &stats.Chunks},
		{"SELECT COUNT(*) FROM embeddings", &stats.Embeddings},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("count rows: %w", err)
		}
	}
	return stats, nil
}

// Close closes the database.
func (s *SQLiteMetadataStore) Close() error {
	return s.db.Close()
}

// Verify interface implementation
var _ MetadataStore = (*SQLiteMetadataStore)(nil)

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian float32 blob.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}

func marshalMetadata(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalMetadata(ns sql.NullString) (map[string]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
