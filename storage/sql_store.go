package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"market-dss/models"
	"market-dss/utils"
)

// rowColumn orders stored rows; it is never returned to callers.
const rowColumn = "dss_row"

// SQLStore keeps tables in PostgreSQL or SQLite. Every column is TEXT and
// empty cells are stored as NULL.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQLStore connects with driver "postgres" or "sqlite" and waits for
// the database to answer.
func OpenSQLStore(ctx context.Context, driver, dsn string, logger *utils.Logger) (*SQLStore, error) {
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("sql store: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}
	// SQLite allows one writer; a single connection queues concurrent
	// uploads instead of failing them with SQLITE_BUSY.
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do(ctx, driver+" ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLStore(db, driver), nil
}

// NewSQLStore wraps an open handle.
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) placeholder(n int) string {
	if s.driver == "postgres" {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// ReplaceTable drops name and recreates it holding t.
func (s *SQLStore) ReplaceTable(ctx context.Context, name string, t *models.Table) error {
	columns := storedColumns(t.Columns)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.driver, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("%s: drop %s: %w", s.driver, name, err)
	}

	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, pq.QuoteIdentifier(rowColumn)+" INTEGER NOT NULL")
	for _, c := range columns {
		defs = append(defs, pq.QuoteIdentifier(c)+" TEXT")
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", pq.QuoteIdentifier(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("%s: create %s: %w", s.driver, name, err)
	}

	batchSize := 500 / (len(columns) + 1)
	if batchSize < 1 {
		batchSize = 1
	}
	for i := 0; i < len(t.Rows); i += batchSize {
		end := i + batchSize
		if end > len(t.Rows) {
			end = len(t.Rows)
		}
		if err := s.insertBatch(ctx, tx, name, columns, t.Rows[i:end], i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.driver, err)
	}
	return nil
}

func (s *SQLStore) insertBatch(ctx context.Context, tx *sql.Tx, name string, columns []string, batch [][]string, offset int) error {
	width := len(columns) + 1
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*width)

	for idx, row := range batch {
		ph := make([]string, width)
		for j := range ph {
			ph[j] = s.placeholder(idx*width + j + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

		valueArgs = append(valueArgs, offset+idx)
		for j := range columns {
			var v any
			if j < len(row) && row[j] != "" {
				v = row[j]
			}
			valueArgs = append(valueArgs, v)
		}
	}

	quoted := make([]string, 0, width)
	quoted = append(quoted, pq.QuoteIdentifier(rowColumn))
	for _, c := range columns {
		quoted = append(quoted, pq.QuoteIdentifier(c))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		pq.QuoteIdentifier(name), strings.Join(quoted, ", "), strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("%s: insert into %s: %w", s.driver, name, err)
	}
	return nil
}

// ReadTable returns the stored table in insertion order, or ErrNotFound.
func (s *SQLStore) ReadTable(ctx context.Context, name string) (*models.Table, error) {
	exists, err := s.tableExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s: table %s: %w", s.driver, name, ErrNotFound)
	}

	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", pq.QuoteIdentifier(name), pq.QuoteIdentifier(rowColumn))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", s.driver, name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s: columns of %s: %w", s.driver, name, err)
	}
	skip := -1
	visible := make([]string, 0, len(cols))
	for i, c := range cols {
		if c == rowColumn {
			skip = i
			continue
		}
		visible = append(visible, c)
	}

	t := models.NewTable(visible)
	values := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: scan %s: %w", s.driver, name, err)
		}
		row := make([]string, 0, len(visible))
		for i, v := range values {
			if i != skip {
				row = append(row, v.String)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

func (s *SQLStore) tableExists(ctx context.Context, name string) (bool, error) {
	var query string
	if s.driver == "postgres" {
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
	} else {
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&n); err != nil {
		return false, fmt.Errorf("%s: lookup %s: %w", s.driver, name, err)
	}
	return n > 0, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// storedColumns names blank headers and suffixes repeats so every column
// is a distinct identifier.
func storedColumns(columns []string) []string {
	out := make([]string, len(columns))
	seen := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			c = "unnamed_" + strconv.Itoa(i)
		}
		if n, dup := seen[c]; dup {
			seen[c] = n + 1
			c = c + "." + strconv.Itoa(n)
		} else {
			seen[c] = 1
		}
		out[i] = c
	}
	return out
}

// IsNotFound reports whether err means the data was never written.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
