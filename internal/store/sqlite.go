package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/krispyensign/mutantstopbot/internal/kernel"
	"github.com/krispyensign/mutantstopbot/internal/solver"
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const createResultsTable = `
CREATE TABLE IF NOT EXISTS results (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at         TEXT NOT NULL,
	instrument         TEXT NOT NULL,
	wma_period         INTEGER NOT NULL,
	signal_buy_column  TEXT NOT NULL,
	signal_exit_column TEXT NOT NULL,
	source_column      TEXT NOT NULL,
	exec_column        TEXT NOT NULL,
	take_profit        REAL NOT NULL,
	stop_loss          REAL NOT NULL,
	edge               TEXT NOT NULL,
	exit_total         REAL NOT NULL,
	ratio              REAL NOT NULL,
	wins               INTEGER NOT NULL,
	losses             INTEGER NOT NULL,
	raw_pnl            REAL NOT NULL,
	refined_pnl        REAL NOT NULL,
	perfect_pnl        REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_instrument ON results(instrument, id);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the results schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createResultsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating results schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveResult inserts the winning result of one solver run together with its
// segmented triad.
func (s *SQLiteStore) SaveResult(ctx context.Context, result *solver.BacktestResult, triad solver.Triad) error {
	if result == nil {
		return errors.New("store: nil result")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (
			created_at, instrument,
			wma_period, signal_buy_column, signal_exit_column,
			source_column, exec_column, take_profit, stop_loss, edge,
			exit_total, ratio, wins, losses,
			raw_pnl, refined_pnl, perfect_pnl
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		result.Instrument,
		result.Config.WMAPeriod,
		result.Config.SignalBuyColumn,
		result.Config.SignalExitColumn,
		result.Config.SourceColumn,
		result.Config.ExecColumn,
		result.Config.TakeProfit,
		result.Config.StopLoss,
		result.Config.Edge.String(),
		result.ExitTotal,
		result.Ratio,
		result.Wins,
		result.Losses,
		triad.Raw,
		triad.Refined,
		triad.Perfect,
	)
	if err != nil {
		return fmt.Errorf("saving result for %s: %w", result.Instrument, err)
	}
	return nil
}

// LatestResult returns the most recent saved result for the instrument, or
// (nil, zero triad, nil) when none exists.
func (s *SQLiteStore) LatestResult(ctx context.Context, instrument string) (*solver.BacktestResult, solver.Triad, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT wma_period, signal_buy_column, signal_exit_column,
		       source_column, exec_column, take_profit, stop_loss, edge,
		       exit_total, ratio, wins, losses,
		       raw_pnl, refined_pnl, perfect_pnl
		FROM results
		WHERE instrument = ?
		ORDER BY id DESC
		LIMIT 1`, instrument)

	var (
		result   solver.BacktestResult
		edgeName string
		triad    solver.Triad
	)
	err := row.Scan(
		&result.Config.WMAPeriod,
		&result.Config.SignalBuyColumn,
		&result.Config.SignalExitColumn,
		&result.Config.SourceColumn,
		&result.Config.ExecColumn,
		&result.Config.TakeProfit,
		&result.Config.StopLoss,
		&edgeName,
		&result.ExitTotal,
		&result.Ratio,
		&result.Wins,
		&result.Losses,
		&triad.Raw,
		&triad.Refined,
		&triad.Perfect,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, solver.Triad{}, nil
	}
	if err != nil {
		return nil, solver.Triad{}, fmt.Errorf("loading result for %s: %w", instrument, err)
	}

	edge, err := kernel.ParseEdge(edgeName)
	if err != nil {
		return nil, solver.Triad{}, fmt.Errorf("loading result for %s: %w", instrument, err)
	}
	result.Config.Edge = edge
	result.Instrument = instrument
	return &result, triad, nil
}

// ListResults returns up to limit saved results for the instrument, newest
// first. A non-positive limit returns all of them.
func (s *SQLiteStore) ListResults(ctx context.Context, instrument string, limit int) ([]solver.BacktestResult, error) {
	q := `
		SELECT wma_period, signal_buy_column, signal_exit_column,
		       source_column, exec_column, take_profit, stop_loss, edge,
		       exit_total, ratio, wins, losses
		FROM results
		WHERE instrument = ?
		ORDER BY id DESC`
	args := []any{instrument}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing results for %s: %w", instrument, err)
	}
	defer rows.Close()

	var results []solver.BacktestResult
	for rows.Next() {
		var (
			r        solver.BacktestResult
			edgeName string
		)
		err := rows.Scan(
			&r.Config.WMAPeriod,
			&r.Config.SignalBuyColumn,
			&r.Config.SignalExitColumn,
			&r.Config.SourceColumn,
			&r.Config.ExecColumn,
			&r.Config.TakeProfit,
			&r.Config.StopLoss,
			&edgeName,
			&r.ExitTotal,
			&r.Ratio,
			&r.Wins,
			&r.Losses,
		)
		if err != nil {
			return nil, fmt.Errorf("listing results for %s: %w", instrument, err)
		}
		edge, err := kernel.ParseEdge(edgeName)
		if err != nil {
			return nil, fmt.Errorf("listing results for %s: %w", instrument, err)
		}
		r.Config.Edge = edge
		r.Instrument = instrument
		results = append(results, r)
	}
	return results, rows.Err()
}
