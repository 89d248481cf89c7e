package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-service/internal/domain"
)

// CatalogLoader loads subject JSONB from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadSubject(ctx context.Context, name string) (domain.Subject, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM subjects WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Subject{}, domain.ErrSubjectNotFound
	}
	if err != nil {
		return domain.Subject{}, fmt.Errorf("load subject: %w", err)
	}
	return decodeSubject(raw)
}

func (l *CatalogLoader) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM subjects ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []domain.Subject
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subject, err := decodeSubject(raw)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

// SeedSubjects upserts subjects, keeping their order as the list position.
func (l *CatalogLoader) SeedSubjects(ctx context.Context, subjects []domain.Subject) error {
	batch := &pgx.Batch{}
	for i, subject := range subjects {
		raw, err := json.Marshal(subject)
		if err != nil {
			return fmt.Errorf("encode subject %s: %w", subject.Name, err)
		}
		batch.Queue(`INSERT INTO subjects (name, position, data, updated_at) VALUES ($1, $2, $3, now())
			ON CONFLICT (name) DO UPDATE SET position = EXCLUDED.position, data = EXCLUDED.data, updated_at = now()`,
			subject.Name, i, raw)
	}
	br := l.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range subjects {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("seed subjects: %w", err)
		}
	}
	return nil
}

func decodeSubject(raw []byte) (domain.Subject, error) {
	var subject domain.Subject
	if err := json.Unmarshal(raw, &subject); err != nil {
		return domain.Subject{}, fmt.Errorf("unmarshal subject: %w", err)
	}
	return subject, nil
}
