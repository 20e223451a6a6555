package store

import (
	"context"
	"fmt"

	"github.com/rcliao/pinyin-predict/internal/model"
)

func (s *SQLiteStore) FetchCandidateTransitions(ctx context.Context, wordIDs []int64) (map[model.TransitionKey]model.Transition, error) {
	s.maint.RLock()
	defer s.maint.RUnlock()

	ids := idList(wordIDs)
	rows, err := s.db.QueryContext(ctx,
		`SELECT word_id, predecessor_id, value_base, value_user FROM word_transition
		 WHERE word_id IN (SELECT value FROM json_each(?))
		    OR (word_id = ? AND (predecessor_id = ? OR predecessor_id IN (SELECT value FROM json_each(?))))`,
		ids, model.EOS.Key(), model.Total.Key(), ids)
	if err != nil {
		return nil, fmt.Errorf("fetch transitions: %w", err)
	}
	defer rows.Close()

	out := make(map[model.TransitionKey]model.Transition)
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		out[t.Key()] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition returns a single row, or a zero Transition when absent.
func (s *SQLiteStore) Transition(ctx context.Context, word, prev model.Word) (model.Transition, error) {
	s.maint.RLock()
	defer s.maint.RUnlock()

	t, err := scanTransition(s.db.QueryRowContext(ctx,
		`SELECT word_id, predecessor_id, value_base, value_user FROM word_transition
		 WHERE word_id = ? AND predecessor_id = ?`, word.Key(), prev.Key()))
	if err != nil {
		if isNoRows(err) {
			return model.Transition{Word: word, Prev: prev}, nil
		}
		return model.Transition{}, err
	}
	return t, nil
}

func scanTransition(row scanner) (model.Transition, error) {
	var t model.Transition
	var w, p int64
	if err := row.Scan(&w, &p, &t.Base, &t.User); err != nil {
		return t, err
	}
	t.Word = model.FromWordKey(w)
	t.Prev = model.FromPredecessorKey(p)
	return t, nil
}

// Counts answers decoder count lookups from pre-fetched rows, combining
// base, user and the user bias at read time.
type Counts struct {
	rows map[model.TransitionKey]model.Transition
	bias int64
}

// NewCounts wraps rows fetched by FetchCandidateTransitions.
func NewCounts(rows map[model.TransitionKey]model.Transition, bias int64) *Counts {
	if bias < 0 {
		bias = 0
	}
	return &Counts{rows: rows, bias: bias}
}

// Count returns the combined count for (word, prev), 0 if absent.
func (c *Counts) Count(word, prev model.Word) int64 {
	t, ok := c.rows[model.TransitionKey{Word: word, Prev: prev}]
	if !ok {
		return 0
	}
	return t.Combined(c.bias)
}
