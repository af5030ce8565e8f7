package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hosh/internal/domain"
	"hosh/pkg/apperror"
)

// UpsertTarget registers a target discovered by the Discovery role.
// Targets are stored in a ReplacingMergeTree keyed by target_id, so
// inserting an already-known target is a no-op at query time once
// ClickHouse merges the parts — Discovery re-runs are idempotent by
// construction rather than requiring a SELECT-then-INSERT dance.
func (s *Store) UpsertTarget(ctx context.Context, t domain.Target) error {
	return timeQuery("upsert_target", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO targets (
				target_id, module, hostname, port, community, user_submitted, check_id
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.TargetID.String(), string(t.Module), t.Hostname, t.Port,
			boolToUInt8(t.Community), boolToUInt8(t.UserSubmitted), t.CheckID,
		)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to upsert target")
		}
		return nil
	})
}

// JobsNotRecentlyChecked implements the Dispatch API's GET /jobs
// recency filter exactly as spec.md §4.3/§8 describes it: load every
// target for module, load the set of (hostname, port) pairs that have
// any result row with checked_at within the trailing window, and
// return the targets NOT in that set, in stable (hostname-ordered)
// order, up to limit. This is a dedup heuristic, not a correctness
// boundary — concurrent workers racing past it both still land their
// rows in the append-only results log.
func (s *Store) JobsNotRecentlyChecked(ctx context.Context, module domain.Module, window time.Duration, limit int) ([]domain.Target, error) {
	var out []domain.Target
	err := timeQuery("jobs_not_recently_checked", func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT
				t.target_id, t.hostname,
				argMax(t.port, t.ts) AS port,
				argMax(t.community, t.ts) AS community,
				argMax(t.user_submitted, t.ts) AS user_submitted,
				argMax(t.check_id, t.ts) AS check_id
			FROM targets t
			LEFT ANTI JOIN (
				SELECT DISTINCT target_id
				FROM results
				WHERE checker_module = ? AND checked_at >= ?
			) recent ON recent.target_id = t.target_id
			WHERE t.module = ?
			GROUP BY t.target_id, t.hostname
			ORDER BY t.hostname
			LIMIT ?`,
			string(module), time.Now().UTC().Add(-window), string(module), limit,
		)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeDispatchRejected, "failed to query dispatch jobs")
		}
		defer rows.Close()

		for rows.Next() {
			var (
				idStr         string
				hostname      string
				port          int
				community     uint8
				userSubmitted uint8
				checkID       sql.NullString
			)
			if err := rows.Scan(&idStr, &hostname, &port, &community, &userSubmitted, &checkID); err != nil {
				return apperror.Wrap(err, apperror.CodeDispatchRejected, "failed to scan dispatch job row")
			}
			id, err := uuid.Parse(idStr)
			if err != nil {
				continue
			}
			if port == 0 {
				port = domain.DefaultPort(module)
			}
			out = append(out, domain.Target{
				TargetID:      id,
				Module:        module,
				Hostname:      hostname,
				Port:          port,
				Community:     community != 0,
				UserSubmitted: userSubmitted != 0,
				CheckID:       nullStringPtr(checkID),
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AllTargets returns every known target for a module, used by
// Discovery's reconciliation pass to decide which seeds are already
// registered.
func (s *Store) AllTargets(ctx context.Context, module domain.Module) ([]domain.Target, error) {
	var out []domain.Target
	err := timeQuery("all_targets", func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT
				target_id, hostname,
				argMax(port, ts) AS port,
				argMax(community, ts) AS community,
				argMax(user_submitted, ts) AS user_submitted,
				argMax(check_id, ts) AS check_id
			FROM targets
			WHERE module = ?
			GROUP BY target_id, hostname`,
			string(module),
		)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to query targets")
		}
		defer rows.Close()

		for rows.Next() {
			var (
				idStr         string
				hostname      string
				port          int
				community     uint8
				userSubmitted uint8
				checkID       sql.NullString
			)
			if err := rows.Scan(&idStr, &hostname, &port, &community, &userSubmitted, &checkID); err != nil {
				return apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to scan target row")
			}
			id, err := uuid.Parse(idStr)
			if err != nil {
				continue
			}
			out = append(out, domain.Target{
				TargetID:      id,
				Module:        module,
				Hostname:      hostname,
				Port:          port,
				Community:     community != 0,
				UserSubmitted: userSubmitted != 0,
				CheckID:       nullStringPtr(checkID),
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
