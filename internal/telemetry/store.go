package telemetry

import (
	"database/sql"
	"fmt"
)

// MaxZeroResultRows bounds the persisted zero-result queries.
const MaxZeroResultRows = 100

// SQLiteStore implements Store on a shared SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db, creating the statistics tables if needed. The
// database is not closed by the store.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := InitSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// InitSchema creates the statistics tables if they don't exist.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ftsync_search_units (
		date TEXT NOT NULL,
		unit TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, unit)
	);

	CREATE TABLE IF NOT EXISTS ftsync_search_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ftsync_search_terms_count ON ftsync_search_terms(count DESC);

	CREATE TABLE IF NOT EXISTS ftsync_zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ftsync_search_latency (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create search statistics schema: %w", err)
	}
	return nil
}

// upsert runs stmt once per entry inside one transaction.
func upsert[K ~string](db *sql.DB, stmt string, entries map[K]int64, args func(K, int64) []any) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prepared, err := tx.Prepare(stmt)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer prepared.Close()

	for k, v := range entries {
		if _, err := prepared.Exec(args(k, v)...); err != nil {
			return fmt.Errorf("upsert %s: %w", string(k), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SaveUnitCounts adds daily per-unit query counts.
func (s *SQLiteStore) SaveUnitCounts(date string, counts map[string]int64) error {
	return upsert(s.db, `
		INSERT INTO ftsync_search_units (date, unit, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, unit) DO UPDATE SET count = count + excluded.count
	`, counts, func(unit string, n int64) []any { return []any{date, unit, n} })
}

// UpsertTermCounts adds term frequency counts.
func (s *SQLiteStore) UpsertTermCounts(terms map[string]int64) error {
	return upsert(s.db, `
		INSERT INTO ftsync_search_terms (term, count, last_seen)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = CURRENT_TIMESTAMP
	`, terms, func(term string, n int64) []any { return []any{term, n} })
}

// SaveLatencyCounts adds daily latency histogram counts.
func (s *SQLiteStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	return upsert(s.db, `
		INSERT INTO ftsync_search_latency (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
	`, counts, func(b LatencyBucket, n int64) []any { return []any{date, string(b), n} })
}

// AddZeroResultQueries appends queries and keeps the newest
// MaxZeroResultRows.
func (s *SQLiteStore) AddZeroResultQueries(queries []string) error {
	if len(queries) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range queries {
		if _, err := tx.Exec(`INSERT INTO ftsync_zero_result_queries (query) VALUES (?)`, q); err != nil {
			return fmt.Errorf("insert zero-result query: %w", err)
		}
	}

	_, err = tx.Exec(`
		DELETE FROM ftsync_zero_result_queries
		WHERE id NOT IN (
			SELECT id FROM ftsync_zero_result_queries
			ORDER BY id DESC
			LIMIT ?
		)
	`, MaxZeroResultRows)
	if err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Summary aggregates everything persisted so far. TopTerms holds at most
// topTerms entries and ZeroResultQueries the newest zeroResults, newest
// first. ZeroResultCount counts the retained rows only.
func (s *SQLiteStore) Summary(topTerms, zeroResults int) (*Snapshot, error) {
	snap := &Snapshot{
		UnitCounts:          make(map[string]int64),
		LatencyDistribution: make(map[LatencyBucket]int64),
	}

	rows, err := s.db.Query(`SELECT unit, SUM(count) FROM ftsync_search_units GROUP BY unit`)
	if err != nil {
		return nil, fmt.Errorf("query unit counts: %w", err)
	}
	for rows.Next() {
		var unit string
		var n int64
		if err := rows.Scan(&unit, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.UnitCounts[unit] = n
		snap.TotalQueries += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT bucket, SUM(count) FROM ftsync_search_latency GROUP BY bucket`)
	if err != nil {
		return nil, fmt.Errorf("query latency counts: %w", err)
	}
	for rows.Next() {
		var bucket string
		var n int64
		if err := rows.Scan(&bucket, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.LatencyDistribution[LatencyBucket(bucket)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`
		SELECT term, count FROM ftsync_search_terms
		ORDER BY count DESC, term ASC
		LIMIT ?
	`, topTerms)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.TopTerms = append(snap.TopTerms, tc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`
		SELECT query FROM ftsync_zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`, zeroResults)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.ZeroResultQueries = append(snap.ZeroResultQueries, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ftsync_zero_result_queries`).Scan(&snap.ZeroResultCount); err != nil {
		return nil, fmt.Errorf("count zero-result queries: %w", err)
	}
	return snap, nil
}
