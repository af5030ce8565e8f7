package store

import (
	"context"

	"hosh/internal/domain"
	"hosh/pkg/apperror"
)

// InsertExplorerHeight appends one block-explorer height observation.
// Like results, this table is append-only.
func (s *Store) InsertExplorerHeight(ctx context.Context, h domain.BlockExplorerHeight) error {
	return timeQuery("insert_explorer_height", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO block_explorer_heights (
				explorer, chain, block_height, response_time_ms, error, checked_at
			) VALUES (?, ?, ?, ?, ?, ?)`,
			h.Explorer, h.Chain, h.BlockHeight, h.ResponseTimeMs, h.Error, h.CheckedAt.UTC(),
		)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to insert explorer height")
		}
		return nil
	})
}

// LatestExplorerHeights returns the most recent observation for every
// (explorer, chain) pair, feeding the /explorers cross-explorer
// height-difference table (spec.md §6, §12 supplement 1).
func (s *Store) LatestExplorerHeights(ctx context.Context) ([]domain.BlockExplorerHeight, error) {
	var out []domain.BlockExplorerHeight
	err := timeQuery("latest_explorer_heights", func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT
				explorer, chain,
				argMax(block_height, checked_at) AS block_height,
				argMax(response_time_ms, checked_at) AS response_time_ms,
				argMax(error, checked_at) AS error,
				max(checked_at) AS checked_at
			FROM block_explorer_heights
			GROUP BY explorer, chain
			ORDER BY chain, explorer`,
		)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeRenderFailed, "failed to query explorer heights")
		}
		defer rows.Close()

		for rows.Next() {
			var h domain.BlockExplorerHeight
			if err := rows.Scan(&h.Explorer, &h.Chain, &h.BlockHeight, &h.ResponseTimeMs, &h.Error, &h.CheckedAt); err != nil {
				return apperror.Wrap(err, apperror.CodeRenderFailed, "failed to scan explorer height row")
			}
			out = append(out, h)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
