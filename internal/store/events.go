package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcliao/pinyin-predict/internal/model"
)

func (s *SQLiteStore) Events(ctx context.Context, p EventsParams) ([]model.TrainEvent, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, phrase, count, created_at, undone_at FROM train_events`
	if !p.IncludeUndone {
		query += ` WHERE undone_at IS NULL`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.TrainEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) Event(ctx context.Context, id string) (*model.TrainEvent, error) {
	ev, err := scanEvent(s.db.QueryRowContext(ctx,
		`SELECT id, phrase, count, created_at, undone_at FROM train_events WHERE id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
		}
		return nil, err
	}
	return &ev, nil
}

// LastEvent returns the newest event that has not been undone.
func (s *SQLiteStore) LastEvent(ctx context.Context) (*model.TrainEvent, error) {
	events, err := s.Events(ctx, EventsParams{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: journal is empty", ErrEventNotFound)
	}
	return &events[0], nil
}

func scanEvent(row scanner) (model.TrainEvent, error) {
	var ev model.TrainEvent
	var phrase, createdAt string
	var undoneAt sql.NullString

	if err := row.Scan(&ev.ID, &phrase, &ev.Count, &createdAt, &undoneAt); err != nil {
		return ev, err
	}
	if err := json.Unmarshal([]byte(phrase), &ev.Phrase); err != nil {
		return ev, fmt.Errorf("decode phrase of event %s: %w", ev.ID, err)
	}
	var err error
	if ev.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return ev, fmt.Errorf("decode created_at of event %s: %w", ev.ID, err)
	}
	if undoneAt.Valid {
		t, err := time.Parse(time.RFC3339, undoneAt.String)
		if err != nil {
			return ev, fmt.Errorf("decode undone_at of event %s: %w", ev.ID, err)
		}
		ev.UndoneAt = &t
	}
	return ev, nil
}
