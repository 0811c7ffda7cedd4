package main

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// dbCache holds a DuckDB connection backed by a view over every
// archive parquet shard under roots, refreshing the view periodically so
// newly written shards show up without restarting the process.
type dbCache struct {
	roots       []string
	refreshRate time.Duration

	mu          sync.RWMutex
	db          *sql.DB
	lastRefresh time.Time
}

func newDBCache(roots []string, refreshRate time.Duration) *dbCache {
	return &dbCache{roots: roots, refreshRate: refreshRate}
}

func (c *dbCache) get() (*sql.DB, error) {
	c.mu.RLock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		db := c.db
		c.mu.RUnlock()
		return db, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	return c.refreshLocked()
}

func (c *dbCache) refreshLocked() (*sql.DB, error) {
	newDB, err := openBatchesView(c.roots)
	if err != nil {
		return nil, err
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	c.db = newDB
	c.lastRefresh = time.Now()
	return c.db, nil
}

// openBatchesView opens an in-memory DuckDB connection and creates a
// "batches" view over every *.parquet shard found under roots, mirroring
// the teacher's glob-over-parquet-shards viewer pattern but against
// archive.Row's schema instead of battlesnake turns.
func openBatchesView(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("viewer: open duckdb: %w", err)
	}
	_, _ = db.Exec("PRAGMA threads=4")

	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		glob := filepath.Join(root, "*.parquet")
		globs = append(globs, "'"+strings.ReplaceAll(glob, "'", "''")+"'")
	}

	if len(globs) == 0 {
		_, err := db.Exec(`CREATE OR REPLACE VIEW batches AS
			SELECT
				NULL::VARCHAR AS batch_id,
				NULL::INTEGER AS root_index,
				NULL::INTEGER AS simulations,
				NULL::INTEGER AS to_play,
				NULL::DOUBLE AS root_value,
				NULL::VARCHAR AS child_visits_json,
				NULL::VARCHAR AS trajectory_json,
				NULL::BIGINT AS written_at_unix
			WHERE FALSE`)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("viewer: create empty view: %w", err)
		}
		return db, nil
	}

	query := fmt.Sprintf(
		"CREATE OR REPLACE VIEW batches AS SELECT * FROM read_parquet([%s], union_by_name=true)",
		strings.Join(globs, ", "),
	)
	if _, err := db.Exec(query); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("viewer: create batches view: %w", err)
	}
	return db, nil
}
