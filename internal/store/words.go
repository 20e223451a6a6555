package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/pinyin-predict/internal/model"
)

// PutEntries loads dictionary entries, creating reading ids as needed.
// Existing words are updated in place; their user weight is kept.
func (s *SQLiteStore) PutEntries(ctx context.Context, entries []model.Entry) (int, error) {
	loaded := 0
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			if !model.ValidWordID(e.ID) {
				return fmt.Errorf("entry %d: word id must be non-negative", e.ID)
			}
			char := strings.TrimSpace(e.Char)
			pinyin := model.NormalizePinyin(e.Pinyin)
			if char == "" || pinyin == "" {
				return fmt.Errorf("entry %d: char and pinyin are required", e.ID)
			}
			if e.Weight < 0 {
				return fmt.Errorf("entry %d: weight must be non-negative", e.ID)
			}

			var readingID int64
			err := tx.QueryRowContext(ctx,
				`INSERT INTO readings (pinyin) VALUES (?)
				 ON CONFLICT(pinyin) DO UPDATE SET pinyin = excluded.pinyin
				 RETURNING reading_id`, pinyin).Scan(&readingID)
			if err != nil {
				return fmt.Errorf("upsert reading %q: %w", pinyin, err)
			}

			_, err = tx.ExecContext(ctx,
				`INSERT INTO word_weight (word_id, reading_id, char, weight_base) VALUES (?, ?, ?, ?)
				 ON CONFLICT(word_id) DO UPDATE SET
				   reading_id = excluded.reading_id,
				   char = excluded.char,
				   weight_base = excluded.weight_base`,
				e.ID, readingID, char, e.Weight)
			if err != nil {
				return fmt.Errorf("upsert word %d: %w", e.ID, err)
			}
			loaded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return loaded, nil
}

func (s *SQLiteStore) CandidatesForReadings(ctx context.Context, readingIDs []int64) (map[int64][]int64, error) {
	s.maint.RLock()
	defer s.maint.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT reading_id, word_id FROM word_weight
		 WHERE reading_id IN (SELECT value FROM json_each(?))
		 ORDER BY reading_id, word_id`, idList(readingIDs))
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var r, w int64
		if err := rows.Scan(&r, &w); err != nil {
			return nil, err
		}
		out[r] = append(out[r], w)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ResolveReadings(ctx context.Context, pinyin []string) ([]int64, error) {
	s.maint.RLock()
	defer s.maint.RUnlock()

	normalized := make([]string, len(pinyin))
	for i, p := range pinyin {
		normalized[i] = model.NormalizePinyin(p)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT pinyin, reading_id FROM readings WHERE pinyin IN (SELECT value FROM json_each(?))`,
		stringList(normalized))
	if err != nil {
		return nil, fmt.Errorf("resolve readings: %w", err)
	}
	defer rows.Close()

	found := make(map[string]int64)
	for rows.Next() {
		var p string
		var id int64
		if err := rows.Scan(&p, &id); err != nil {
			return nil, err
		}
		found[p] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]int64, len(normalized))
	for i, p := range normalized {
		id, ok := found[p]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownReading, pinyin[i])
		}
		ids[i] = id
	}
	return ids, nil
}

func (s *SQLiteStore) Words(ctx context.Context, ids []int64) (map[int64]model.WordWeight, error) {
	s.maint.RLock()
	defer s.maint.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT word_id, reading_id, char, weight_base, weight_user FROM word_weight
		 WHERE word_id IN (SELECT value FROM json_each(?))`, idList(ids))
	if err != nil {
		return nil, fmt.Errorf("fetch words: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]model.WordWeight)
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		out[w.WordID] = w
	}
	return out, rows.Err()
}

// WordsForReading lists the words sharing a pinyin spelling, most used first.
func (s *SQLiteStore) WordsForReading(ctx context.Context, pinyin string) ([]model.WordWeight, error) {
	s.maint.RLock()
	defer s.maint.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT w.word_id, w.reading_id, w.char, w.weight_base, w.weight_user
		 FROM word_weight w JOIN readings r ON r.reading_id = w.reading_id
		 WHERE r.pinyin = ?
		 ORDER BY w.weight_base + w.weight_user DESC, w.word_id`, model.NormalizePinyin(pinyin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WordWeight
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWord(row scanner) (model.WordWeight, error) {
	var w model.WordWeight
	err := row.Scan(&w.WordID, &w.ReadingID, &w.Char, &w.Base, &w.User)
	return w, err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
