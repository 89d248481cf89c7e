package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-service/internal/domain"
)

// ResultLog stores leaderboard entries as rows. Appending an entry whose ID
// already exists is a no-op, so retried writes never duplicate.
type ResultLog struct {
	pool *pgxpool.Pool
}

func NewResultLog(pool *pgxpool.Pool) *ResultLog {
	return &ResultLog{pool: pool}
}

func (l *ResultLog) AppendEntry(ctx context.Context, e domain.LeaderboardEntry) error {
	_, err := l.pool.Exec(ctx, `INSERT INTO leaderboard_entries
		(id, player, subject, tier, score, total, percentage, elapsed_seconds, avatar, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Player, e.Subject, e.Tier, e.Score, e.Total, e.Percentage, e.Time, e.Avatar, e.CompletedAt)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

func (l *ResultLog) Entries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, player, subject, tier, score, total, percentage, elapsed_seconds, avatar, completed_at
		FROM leaderboard_entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.Player, &e.Subject, &e.Tier, &e.Score, &e.Total, &e.Percentage, &e.Time, &e.Avatar, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
