// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"fmt"
)

// Feedback records an accept or reject event against a rule and re-derives
// its confidence from the base confidence and the updated counters. Unknown
// rule IDs are an error.
func (s *Store) Feedback(ctx context.Context, ruleID string, accepted bool) (float64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		base               float64
		accCount, rejCount int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT base_confidence, accepted, rejected FROM rules WHERE id = ?`, ruleID,
	).Scan(&base, &accCount, &rejCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("rule %s not found", ruleID)
		}
		return 0, fmt.Errorf("looking up rule: %w", err)
	}

	if accepted {
		accCount++
	} else {
		rejCount++
	}
	confidence := evolvedConfidence(base, accCount, rejCount)

	if _, err := tx.ExecContext(ctx,
		`UPDATE rules SET accepted = ?, rejected = ?, confidence = ? WHERE id = ?`,
		accCount, rejCount, confidence, ruleID,
	); err != nil {
		return 0, fmt.Errorf("updating rule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing feedback: %w", err)
	}

	return confidence, nil
}
