package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryInsertEvents(ctx context.Context, db executor, runID string, events []model.Event) error {
	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO collected_events (run_id, published, payload)
		VALUES ($1, $2, $3)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, ev := range events {
		if _, err := stmt.ExecContext(ctx, runID, publishedOrNull(ev), []byte(ev)); err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}
	return nil
}

func queryCountEvents(ctx context.Context, db executor) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM collected_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func queryLatestPublished(ctx context.Context, db executor) (string, error) {
	var latest sql.NullString
	if err := db.QueryRowContext(ctx, `SELECT max(published) FROM collected_events`).Scan(&latest); err != nil {
		return "", fmt.Errorf("latest published: %w", err)
	}
	return latest.String, nil
}

// publishedOrNull returns the event's published value, or SQL NULL when the
// event has none.
func publishedOrNull(ev model.Event) sql.NullString {
	p, err := ev.Published()
	if err != nil || p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: p, Valid: true}
}
