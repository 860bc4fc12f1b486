package postgres

import (
	"context"
	"fmt"

	"sitewatch/internal/monitor"
)

// DecisionStore persists notification decision audit rows in Postgres.
type DecisionStore struct {
	pool querier
}

var _ monitor.DecisionStore = (*DecisionStore)(nil)

// NewDecisionStore constructs a DecisionStore on the shared pool.
func NewDecisionStore(pool querier) (*DecisionStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &DecisionStore{pool: pool}, nil
}

// Insert writes one decision audit row.
func (s *DecisionStore) Insert(ctx context.Context, decision monitor.Decision) error {
	if decision.ID == "" {
		return fmt.Errorf("decision id is required")
	}
	query := `
INSERT INTO notification_decisions (
	id,
	target_id,
	kind,
	outcome,
	importance_score,
	decided_at
) VALUES ($1,$2,$3,$4,$5,$6)`
	args := []any{
		decision.ID,
		decision.TargetID,
		string(decision.Kind),
		string(decision.Outcome),
		decision.ImportanceScore,
		decision.DecidedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}
