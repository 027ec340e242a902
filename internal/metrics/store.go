package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"meal-optimizer/internal/database"
)

// SolveMetric records metadata for a single optimization run.
type SolveMetric struct {
	Profile     string
	Objective   string
	Status      string
	Attempts    int
	Latency     time.Duration
	Variables   int
	Constraints int
	Timestamp   time.Time
}

// Store handles persistence of solve metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m SolveMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO solve_metrics (profile, objective, status, attempts, latency_ms, variables, constraints, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Profile, m.Objective, m.Status, m.Attempts, m.Latency.Milliseconds(), m.Variables, m.Constraints,
		database.FormatTime(ts))
	if err != nil {
		return fmt.Errorf("failed to record solve metric: %w", err)
	}
	return nil
}

// DailyUsage aggregates the solves of a single day.
type DailyUsage struct {
	Date         string
	Solves       int
	Optimal      int
	Feasible     int
	Infeasible   int
	Failed       int
	AvgLatencyMS float64
	MaxAttempts  int
}

// GetDailyUsage retrieves per-day solve totals for the last N days, most
// recent first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := database.FormatTime(time.Now().AddDate(0, 0, -days))
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day,
		       COUNT(*),
		       SUM(CASE WHEN status = 'OPTIMAL' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'FEASIBLE' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'INFEASIBLE' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status NOT IN ('OPTIMAL', 'FEASIBLE', 'INFEASIBLE') THEN 1 ELSE 0 END),
		       AVG(latency_ms),
		       MAX(attempts)
		FROM solve_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Solves, &u.Optimal, &u.Feasible, &u.Infeasible, &u.Failed, &u.AvgLatencyMS, &u.MaxAttempts); err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// returns how many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := database.FormatTime(time.Now().AddDate(0, 0, -olderThanDays))
	res, err := s.db.ExecContext(ctx, `DELETE FROM solve_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up solve metrics: %w", err)
	}
	return res.RowsAffected()
}
