package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"viralops/manager-go/internal/utils"
)

// ComplianceResult is the stored outcome of a policy check for one piece of
// content. Violations, warnings and recommendations are JSON string arrays.
type ComplianceResult struct {
	ContentID            string
	OverallScore         float64
	IsCompliant          bool
	Violations           []string
	Warnings             []string
	Recommendations      []string
	CheckedAt            time.Time
	CheckDurationSeconds float64
}

func (s *Store) SaveComplianceResult(ctx context.Context, r ComplianceResult) error {
	utils.Debug("db save compliance result", "content_id", r.ContentID, "score", r.OverallScore, "compliant", r.IsCompliant)
	violations, err := json.Marshal(emptyIfNil(r.Violations))
	if err != nil {
		return err
	}
	warnings, err := json.Marshal(emptyIfNil(r.Warnings))
	if err != nil {
		return err
	}
	recommendations, err := json.Marshal(emptyIfNil(r.Recommendations))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO compliance_results (content_id, overall_score, is_compliant, violations, warnings, recommendations, checked_at, check_duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, ?)
		ON CONFLICT (content_id) DO UPDATE SET
			overall_score = excluded.overall_score,
			is_compliant = excluded.is_compliant,
			violations = excluded.violations,
			warnings = excluded.warnings,
			recommendations = excluded.recommendations,
			checked_at = CURRENT_TIMESTAMP,
			check_duration_seconds = excluded.check_duration_seconds
	`, r.ContentID, r.OverallScore, r.IsCompliant, string(violations), string(warnings), string(recommendations), r.CheckDurationSeconds)
	return err
}

func (s *Store) GetComplianceResult(ctx context.Context, contentID string) (*ComplianceResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT content_id, overall_score, is_compliant, violations, warnings, recommendations, checked_at, check_duration_seconds
		FROM compliance_results
		WHERE content_id = ?
	`, contentID)

	var r ComplianceResult
	var violations, warnings, recommendations string
	err := row.Scan(&r.ContentID, &r.OverallScore, &r.IsCompliant, &violations, &warnings, &recommendations, &r.CheckedAt, &r.CheckDurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(violations), &r.Violations); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(warnings), &r.Warnings); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(recommendations), &r.Recommendations); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListComplianceResults returns the most recent results, newest first.
func (s *Store) ListComplianceResults(ctx context.Context, limit int) ([]ComplianceResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_id, overall_score, is_compliant, violations, warnings, recommendations, checked_at, check_duration_seconds
		FROM compliance_results
		ORDER BY checked_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ComplianceResult
	for rows.Next() {
		var r ComplianceResult
		var violations, warnings, recommendations string
		if err := rows.Scan(&r.ContentID, &r.OverallScore, &r.IsCompliant, &violations, &warnings, &recommendations, &r.CheckedAt, &r.CheckDurationSeconds); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(violations), &r.Violations); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(warnings), &r.Warnings); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(recommendations), &r.Recommendations); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ComplianceStats aggregates all stored results.
type ComplianceStats struct {
	Total        int     `json:"total"`
	Passed       int     `json:"passed"`
	AverageScore float64 `json:"average_score"`
}

func (s *Store) ComplianceStatistics(ctx context.Context) (ComplianceStats, error) {
	var stats ComplianceStats
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_compliant THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(overall_score), 0)
		FROM compliance_results
	`)
	if err := row.Scan(&stats.Total, &stats.Passed, &stats.AverageScore); err != nil {
		return stats, err
	}
	return stats, nil
}

func emptyIfNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
