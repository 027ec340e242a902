// Package ratings persists per-meal user ratings outside the catalog file.
package ratings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"meal-optimizer/internal/database"
)

const (
	MinRating = 1.0
	MaxRating = 10.0
)

// ErrInvalidRating is returned for ratings outside [MinRating, MaxRating].
var ErrInvalidRating = errors.New("rating must be between 1 and 10")

// Repository is a database-backed store of meal ratings keyed by title.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Set records the rating for a meal, replacing any earlier one.
func (r *Repository) Set(ctx context.Context, title string, rating float64) error {
	if title == "" {
		return fmt.Errorf("meal title is required")
	}
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w, got %v", ErrInvalidRating, rating)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_ratings (meal_title, rating, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (meal_title) DO UPDATE SET rating = excluded.rating, updated_at = excluded.updated_at`,
		title, rating, database.FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save rating for %q: %w", title, err)
	}
	return nil
}

// Get returns the stored rating for title and whether one exists.
func (r *Repository) Get(ctx context.Context, title string) (float64, bool, error) {
	var rating float64
	err := r.db.QueryRowContext(ctx, `SELECT rating FROM meal_ratings WHERE meal_title = ?`, title).Scan(&rating)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read rating for %q: %w", title, err)
	}
	return rating, true, nil
}

// All returns every stored rating keyed by meal title.
func (r *Repository) All(ctx context.Context) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT meal_title, rating FROM meal_ratings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var title string
		var rating float64
		if err := rows.Scan(&title, &rating); err != nil {
			return nil, err
		}
		out[title] = rating
	}
	return out, rows.Err()
}

// Reset replaces every stored rating with rating for each of titles, inside
// one transaction. Ratings for titles outside the list are dropped. It
// returns the number of meals reset.
func (r *Repository) Reset(ctx context.Context, titles []string, rating float64) (int64, error) {
	if rating < MinRating || rating > MaxRating {
		return 0, fmt.Errorf("%w, got %v", ErrInvalidRating, rating)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin rating reset: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM meal_ratings`); err != nil {
		return 0, fmt.Errorf("failed to clear ratings: %w", err)
	}
	now := database.FormatTime(time.Now())
	for _, title := range titles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meal_ratings (meal_title, rating, updated_at) VALUES (?, ?, ?)`,
			title, rating, now); err != nil {
			return 0, fmt.Errorf("failed to reset rating for %q: %w", title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rating reset: %w", err)
	}
	return int64(len(titles)), nil
}
