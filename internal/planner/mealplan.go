package planner

import (
	"encoding/json"
	"fmt"
	"time"

	"meal-optimizer/internal/optimizer"
)

// StoredPlan is a solved plan as kept in the plan history.
type StoredPlan struct {
	ID        int64
	UserID    string
	Profile   string
	Objective string
	Status    optimizer.Status
	PlanData  []byte // Raw JSON of the optimizer.Solution
	CreatedAt time.Time
}

// Solution decodes the stored plan.
func (p StoredPlan) Solution() (*optimizer.Solution, error) {
	var sol optimizer.Solution
	if err := json.Unmarshal(p.PlanData, &sol); err != nil {
		return nil, fmt.Errorf("failed to decode stored plan %d: %w", p.ID, err)
	}
	return &sol, nil
}
