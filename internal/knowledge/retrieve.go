// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helpfulengineering/matching-engine/pkg/types"
)

// QueryOptions holds parameters for knowledge base queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over rule names and notes.
	Query string

	// Kind filters by resource type.
	Kind types.ResourceType

	// Original filters by the resource being replaced.
	Original string

	// MinConfidence drops rules below the given evolved confidence.
	MinConfidence float64

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Kind == "" && q.Original == "" && q.MinConfidence == 0
}

// Retrieve queries the rule base with optional full-text search and
// structured filters. Full-text queries rank by relevance; structured-only
// queries sort by kind, original, and descending confidence.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]types.SubstitutionRule, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT r.id, r.kind, r.original, r.substitute, r.confidence,
				r.constraints, r.notes, r.accepted, r.rejected
			FROM rules_fts
			JOIN rules r ON r.rowid = rules_fts.rowid
			WHERE rules_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT r.id, r.kind, r.original, r.substitute, r.confidence,
				r.constraints, r.notes, r.accepted, r.rejected
			FROM rules r
			WHERE 1=1`)
	}

	if opts.Kind != "" {
		qb.WriteString(` AND r.kind = ?`)
		args = append(args, string(opts.Kind))
	}

	if opts.Original != "" {
		qb.WriteString(` AND r.original = ?`)
		args = append(args, opts.Original)
	}

	if opts.MinConfidence > 0 {
		qb.WriteString(` AND r.confidence >= ?`)
		args = append(args, opts.MinConfidence)
	}

	if useFTS {
		qb.WriteString(` ORDER BY rules_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY r.kind, r.original, r.confidence DESC`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge base: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// RulesFor returns the stored rules for one resource, ordered by descending
// confidence. It implements the matcher's rule source.
func (s *Store) RulesFor(ctx context.Context, kind types.ResourceType, original string) ([]types.SubstitutionRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, original, substitute, confidence, constraints, notes, accepted, rejected
		 FROM rules WHERE kind = ? AND original = ?
		 ORDER BY confidence DESC, substitute`,
		string(kind), original)
	if err != nil {
		return nil, fmt.Errorf("querying rules for %s/%s: %w", kind, original, err)
	}
	defer rows.Close()

	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]types.SubstitutionRule, error) {
	var rules []types.SubstitutionRule
	for rows.Next() {
		var (
			rule            types.SubstitutionRule
			kind            string
			constraintsJSON sql.NullString
			notes           sql.NullString
		)
		if err := rows.Scan(
			&rule.ID, &kind, &rule.Original, &rule.Substitute, &rule.Confidence,
			&constraintsJSON, &notes, &rule.Accepted, &rule.Rejected,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		rule.Kind = types.ResourceType(kind)
		rule.Notes = notes.String
		if constraintsJSON.Valid && constraintsJSON.String != "" && constraintsJSON.String != "null" {
			json.Unmarshal([]byte(constraintsJSON.String), &rule.Constraints)
		}

		rules = append(rules, rule)
	}

	return rules, rows.Err()
}
