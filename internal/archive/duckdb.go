// Package archive keeps every bar the robot has seen in DuckDB and mirrors the
// table to a parquet file after each write.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

const barsTable = "bars"

// BarArchive persists bars keyed by (symbol, time). Writing an existing key
// overwrites the bar.
type BarArchive struct {
	db         *sql.DB
	outputPath string
	sq         squirrel.StatementBuilderType
	mu         sync.Mutex
}

// NewBarArchive creates an archive exporting to {dataDir}/bars_{provider}_{interval}.parquet.
func NewBarArchive(dataDir, providerName, interval string) *BarArchive {
	filename := fmt.Sprintf("bars_%s_%s.parquet", providerName, interval)

	return &BarArchive{
		db:         nil,
		outputPath: filepath.Join(dataDir, filename),
		sq:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		mu:         sync.Mutex{},
	}
}

// Initialize opens an in-memory DuckDB database and loads the existing parquet
// file, if any.
func (a *BarArchive) Initialize() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	dir := filepath.Dir(a.outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeArchiveWriteFailed, err, "failed to create archive directory %s", dir)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeArchiveWriteFailed, "failed to open DuckDB connection", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT,
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			PRIMARY KEY (symbol, time)
		)
	`)
	if err != nil {
		db.Close()

		return errors.Wrap(errors.ErrCodeArchiveWriteFailed, "failed to create bars table", err)
	}

	if _, statErr := os.Stat(a.outputPath); statErr == nil {
		_, err = db.Exec(fmt.Sprintf(`
			INSERT INTO bars
			SELECT symbol, time, open, high, low, close, volume FROM read_parquet('%s')
			ON CONFLICT (symbol, time) DO NOTHING
		`, a.outputPath))
		if err != nil {
			db.Close()

			return errors.Wrapf(errors.ErrCodeArchiveReadFailed, err, "failed to load archive %s", a.outputPath)
		}
	}

	a.db = db

	return nil
}

// Write upserts bars in one statement and exports the table to parquet.
func (a *BarArchive) Write(bars ...types.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return errors.New(errors.ErrCodeArchiveWriteFailed, "archive not initialized")
	}

	insert := a.sq.Insert(barsTable).Columns("symbol", "time", "open", "high", "low", "close", "volume")
	for _, bar := range bars {
		insert = insert.Values(bar.Symbol, bar.Time.UTC(), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	query, args, err := insert.Suffix(`ON CONFLICT (symbol, time) DO UPDATE SET
		open = excluded.open,
		high = excluded.high,
		low = excluded.low,
		close = excluded.close,
		volume = excluded.volume`).ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeArchiveWriteFailed, "failed to build insert query", err)
	}

	if _, err := a.db.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeArchiveWriteFailed, "failed to insert bars", err)
	}

	return a.exportToParquet()
}

// Load returns the bars of symbol in [start, end] in ascending time order.
// A zero start or end leaves that side open.
func (a *BarArchive) Load(symbol string, start, end time.Time) ([]types.Bar, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return nil, errors.New(errors.ErrCodeArchiveReadFailed, "archive not initialized")
	}

	query := a.sq.Select("symbol", "time", "open", "high", "low", "close", "volume").
		From(barsTable).
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("time ASC")

	if !start.IsZero() {
		query = query.Where(squirrel.GtOrEq{"time": start.UTC()})
	}

	if !end.IsZero() {
		query = query.Where(squirrel.LtOrEq{"time": end.UTC()})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchiveReadFailed, "failed to build select query", err)
	}

	rows, err := a.db.Query(sqlStr, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArchiveReadFailed, err, "failed to query bars for %s", symbol)
	}
	defer rows.Close()

	bars := []types.Bar{}

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Symbol, &bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeArchiveReadFailed, "failed to scan bar", err)
		}

		bar.Time = bar.Time.UTC()
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchiveReadFailed, "failed to iterate bars", err)
	}

	return bars, nil
}

// Count returns the number of archived bars.
func (a *BarArchive) Count() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return 0, errors.New(errors.ErrCodeArchiveReadFailed, "archive not initialized")
	}

	sqlStr, args, err := a.sq.Select("COUNT(*)").From(barsTable).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeArchiveReadFailed, "failed to build count query", err)
	}

	var count int
	if err := a.db.QueryRow(sqlStr, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeArchiveReadFailed, "failed to count bars", err)
	}

	return count, nil
}

// Flush forces an export to parquet.
func (a *BarArchive) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return errors.New(errors.ErrCodeArchiveWriteFailed, "archive not initialized")
	}

	return a.exportToParquet()
}

// OutputPath returns the parquet file path.
func (a *BarArchive) OutputPath() string {
	return a.outputPath
}

// Close releases database resources.
func (a *BarArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}

		a.db = nil
	}

	return nil
}

func (a *BarArchive) exportToParquet() error {
	_, err := a.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM bars ORDER BY symbol ASC, time ASC)
		TO '%s' (FORMAT PARQUET)
	`, a.outputPath))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeArchiveWriteFailed, err, "failed to export archive to %s", a.outputPath)
	}

	return nil
}
