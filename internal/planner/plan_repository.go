package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"meal-optimizer/internal/database"
	"meal-optimizer/internal/optimizer"
)

// PlanRepository is a database-backed repository for solved meal plans.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// Save inserts a solved plan for userID and returns its ID.
func (r *PlanRepository) Save(ctx context.Context, userID, objective string, sol *optimizer.Solution) (int64, error) {
	data, err := json.Marshal(sol)
	if err != nil {
		return 0, fmt.Errorf("failed to encode plan: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_plans (user_id, profile, objective, status, plan_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, sol.ProfileUsed, objective, string(sol.Status), data, database.FormatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to save meal plan for user %s: %w", userID, err)
	}
	return res.LastInsertId()
}

// ListRecentByUserID retrieves the N most recent meal plans for a given user.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]StoredPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, profile, objective, status, plan_data, created_at
		FROM meal_plans
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meal plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []StoredPlan
	for rows.Next() {
		var p StoredPlan
		var status, createdAt string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Profile, &p.Objective, &status, &p.PlanData, &createdAt); err != nil {
			return nil, err
		}
		p.Status = optimizer.Status(status)
		if p.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("plan %d has a malformed timestamp: %w", p.ID, err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}
