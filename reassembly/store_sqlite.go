package reassembly

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore buffers partial transfers in a local sqlite database so
// a receiver restart does not drop in-flight transfers.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transfer_chunks (
			transfer_id  TEXT    NOT NULL,
			chunk_index  INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			data         BLOB    NOT NULL,
			received_at  INTEGER NOT NULL,
			PRIMARY KEY (transfer_id, chunk_index)
		)`)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, transferID string, chunkIndex, totalChunks int, data []byte) (int, error) {
	if err := validateChunk(transferID, chunkIndex, totalChunks); err != nil {
		return 0, err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfer_chunks (transfer_id, chunk_index, total_chunks, data, received_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (transfer_id, chunk_index)
		DO UPDATE SET data = excluded.data, received_at = excluded.received_at`,
		transferID, chunkIndex, totalChunks, data, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("insert chunk: %w", err)
	}

	var received int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfer_chunks WHERE transfer_id = ?`, transferID).Scan(&received)
	if err != nil {
		return 0, fmt.Errorf("count buffered chunks: %w", err)
	}
	return received, nil
}

// Assemble implements Store.
func (s *SQLiteStore) Assemble(ctx context.Context, transferID string) ([]byte, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_index, total_chunks, data FROM transfer_chunks
		WHERE transfer_id = ?
		ORDER BY chunk_index`, transferID)
	if err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	defer rows.Close()

	var buf bytes.Buffer
	count := 0
	total := 0
	for rows.Next() {
		var index int
		var data []byte
		if err := rows.Scan(&index, &total, &data); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if index != count {
			return nil, fmt.Errorf("transfer %s: chunk %d missing", transferID, count)
		}
		buf.Write(data)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("transfer %s: no buffered chunks", transferID)
	}
	if count != total {
		return nil, fmt.Errorf("transfer %s: only %d of %d chunks buffered", transferID, count, total)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM transfer_chunks WHERE transfer_id = ?`, transferID); err != nil {
		return nil, fmt.Errorf("delete assembled transfer: %w", err)
	}
	return buf.Bytes(), nil
}

// PruneStale implements Store.
func (s *SQLiteStore) PruneStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UnixNano()

	// A transfer is stale when even its newest chunk is older than the cutoff.
	rows, err := s.db.QueryContext(ctx, `
		SELECT transfer_id FROM transfer_chunks
		GROUP BY transfer_id
		HAVING MAX(received_at) < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("select stale transfers: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan transfer ID: %w", err)
		}
		stale = append(stale, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate stale transfers: %w", err)
	}

	for _, id := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM transfer_chunks WHERE transfer_id = ?`, id); err != nil {
			return 0, fmt.Errorf("delete stale transfer %s: %w", id, err)
		}
	}
	return len(stale), nil
}
