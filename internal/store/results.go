package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hosh/internal/domain"
	"hosh/pkg/apperror"
)

// InsertResult appends one probe result row. There is no upsert: every
// probe attempt, successful or not, becomes a new row in the append-only
// results log (spec.md §4.3 "no upsert" invariant).
func (s *Store) InsertResult(ctx context.Context, targetID uuid.UUID, r domain.ProbeResult) error {
	return timeQuery("insert_result", func() error {
		var pingMs any
		if r.PingMs != nil {
			pingMs = *r.PingMs
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO results (
				target_id, hostname, port, checker_module, checked_at, status, ping_ms, response_data
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			targetID.String(), r.Hostname, r.Port, string(r.CheckerModule),
			r.CheckedAt.UTC(), string(r.Status), pingMs, string(r.ResponseData),
		)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to insert result")
		}
		return nil
	})
}

// LatestResult is one row of the latest-per-endpoint view: the most
// recent result for a target, plus the decoded height used by the
// percentile-of-heights badge computation.
type LatestResult struct {
	TargetID     uuid.UUID
	Hostname     string
	Port         int
	Module       domain.Module
	Community    bool
	CheckedAt    time.Time
	FirstSeen    time.Time
	Status       domain.Status
	PingMs       *float64
	Height       uint64
	ResponseData []byte
}

// LatestPerEndpoint returns the most recent result for every target in
// module, using ClickHouse's argMax aggregate keyed by checked_at — the
// ClickHouse-idiomatic equivalent of a `ROW_NUMBER() OVER (PARTITION BY
// ... ORDER BY checked_at DESC) = 1` window, without a second pass.
func (s *Store) LatestPerEndpoint(ctx context.Context, module domain.Module, hideCommunity bool) ([]LatestResult, error) {
	var out []LatestResult
	err := timeQuery("latest_per_endpoint", func() error {
		query := `
			SELECT
				t.target_id, t.hostname,
				argMax(r.port, r.checked_at) AS port,
				max(r.checked_at) AS checked_at,
				min(r.checked_at) AS first_seen,
				argMax(r.status, r.checked_at) AS status,
				argMax(r.ping_ms, r.checked_at) AS ping_ms,
				argMax(JSONExtractUInt(r.response_data, 'height'), r.checked_at) AS height,
				argMax(r.response_data, r.checked_at) AS response_data,
				argMax(t.community, t.ts) AS community
			FROM results r
			INNER JOIN targets t ON t.target_id = r.target_id
			WHERE r.checker_module = ?`
		args := []any{string(module)}
		if hideCommunity {
			query += ` AND t.community = 0`
		}
		query += ` GROUP BY t.target_id, t.hostname ORDER BY t.hostname`

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeRenderFailed, "failed to query latest results")
		}
		defer rows.Close()

		for rows.Next() {
			var (
				idStr     string
				hostname  string
				port      int
				checkedAt time.Time
				firstSeen time.Time
				status    string
				pingMs    sql.NullFloat64
				height    uint64
				respData  string
				community uint8
			)
			if err := rows.Scan(&idStr, &hostname, &port, &checkedAt, &firstSeen, &status, &pingMs, &height, &respData, &community); err != nil {
				return apperror.Wrap(err, apperror.CodeRenderFailed, "failed to scan latest result row")
			}
			id, err := uuid.Parse(idStr)
			if err != nil {
				continue
			}
			lr := LatestResult{
				TargetID:     id,
				Hostname:     hostname,
				Port:         port,
				Module:       module,
				Community:    community != 0,
				CheckedAt:    checkedAt,
				FirstSeen:    firstSeen,
				Status:       domain.Status(status),
				Height:       height,
				ResponseData: []byte(respData),
			}
			if pingMs.Valid {
				v := pingMs.Float64
				lr.PingMs = &v
			}
			out = append(out, lr)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckCounts holds the raw counts behind check-based uptime: total
// checks in the window versus how many came back online.
type CheckCounts struct {
	Total  uint64
	Online uint64
}

// UptimeCheckBased computes the check-based uptime ratio (online
// checks / total checks) over the trailing `since` window, used for
// every module except network-B, which uses calendar uptime instead
// (see UptimeCalendar).
func (s *Store) UptimeCheckBased(ctx context.Context, targetID uuid.UUID, since time.Time) (CheckCounts, error) {
	var cc CheckCounts
	err := timeQuery("uptime_check_based", func() error {
		row := s.db.QueryRowContext(ctx, `
			SELECT
				count(*) AS total,
				countIf(status = 'online') AS online
			FROM results
			WHERE target_id = ? AND checked_at >= ?`,
			targetID.String(), since.UTC(),
		)
		return row.Scan(&cc.Total, &cc.Online)
	})
	if err != nil {
		return CheckCounts{}, apperror.Wrap(err, apperror.CodeRenderFailed, "failed to compute check-based uptime")
	}
	return cc, nil
}

// UptimeCalendar returns targetID's online-check count over the
// trailing window — the numerator half of calendar uptime (spec.md
// §4.6/§8 example 6). The denominator is the fleet-wide maximum total
// check count across every endpoint of the same module in the same
// window (FleetMaxTotalChecks), not this target's own total_checks, so
// a server that was unreachable for most of the window (and so has
// few rows) does not read as falsely near-100%.
func (s *Store) UptimeCalendar(ctx context.Context, targetID uuid.UUID, since time.Time) (uint64, error) {
	var online uint64
	err := timeQuery("uptime_calendar", func() error {
		row := s.db.QueryRowContext(ctx, `
			SELECT countIf(status = 'online')
			FROM results
			WHERE target_id = ? AND checked_at >= ?`,
			targetID.String(), since.UTC(),
		)
		return row.Scan(&online)
	})
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeRenderFailed, "failed to compute calendar uptime")
	}
	return online, nil
}

// FleetMaxTotalChecks returns the maximum total check count across
// every endpoint of module within the trailing window — the calendar
// uptime denominator, shared fleet-wide (spec.md §4.6).
func (s *Store) FleetMaxTotalChecks(ctx context.Context, module domain.Module, since time.Time) (uint64, error) {
	var maxTotal uint64
	err := timeQuery("fleet_max_total_checks", func() error {
		row := s.db.QueryRowContext(ctx, `
			SELECT coalesce(max(total), 0)
			FROM (
				SELECT r.target_id, count(*) AS total
				FROM results r
				INNER JOIN targets t ON t.target_id = r.target_id
				WHERE r.checker_module = ? AND r.checked_at >= ?
				GROUP BY r.target_id
			)`,
			string(module), since.UTC(),
		)
		return row.Scan(&maxTotal)
	})
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeRenderFailed, "failed to compute fleet max total checks")
	}
	return maxTotal, nil
}

// HeightsAt returns the most recent decoded block height for every
// target of module (targets whose latest height is 0 are left out),
// feeding the percentile-of-heights
// behind/ahead badge computation (spec.md §4.6).
func (s *Store) HeightsAt(ctx context.Context, module domain.Module) ([]uint64, error) {
	var out []uint64
	err := timeQuery("heights_at", func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT argMax(JSONExtractUInt(response_data, 'height'), checked_at) AS height
			FROM results
			WHERE checker_module = ?
			GROUP BY target_id
			HAVING height > 0`,
			string(module),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var h uint64
			if err := rows.Scan(&h); err != nil {
				return err
			}
			out = append(out, h)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeRenderFailed, "failed to query fleet heights")
	}
	return out, nil
}

// HistoryWindow returns every result for a single endpoint within the
// given lookback window, ordered oldest-first, for the detail view's
// 1d/7d/30d/lifetime charts.
func (s *Store) HistoryWindow(ctx context.Context, targetID uuid.UUID, since time.Time) ([]domain.ProbeResult, error) {
	var out []domain.ProbeResult
	err := timeQuery("history_window", func() error {
		query := `
			SELECT hostname, port, checker_module, checked_at, status, ping_ms, response_data
			FROM results
			WHERE target_id = ?`
		args := []any{targetID.String()}
		if !since.IsZero() {
			query += ` AND checked_at >= ?`
			args = append(args, since.UTC())
		}
		query += ` ORDER BY checked_at ASC`

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				hostname  string
				port      int
				module    string
				checkedAt time.Time
				status    string
				pingMs    sql.NullFloat64
				respData  string
			)
			if err := rows.Scan(&hostname, &port, &module, &checkedAt, &status, &pingMs, &respData); err != nil {
				return err
			}
			pr := domain.ProbeResult{
				Hostname:      hostname,
				Port:          port,
				CheckerModule: domain.Module(module),
				CheckedAt:     checkedAt,
				Status:        domain.Status(status),
				ResponseData:  []byte(respData),
			}
			if pingMs.Valid {
				v := pingMs.Float64
				pr.PingMs = &v
			}
			out = append(out, pr)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeRenderFailed, "failed to query history window")
	}
	return out, nil
}
