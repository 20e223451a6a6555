package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcliao/pinyin-predict/internal/model"
	"github.com/rcliao/pinyin-predict/internal/trainer"
)

// withWriteTx runs fn inside a single write transaction. The DSN sets
// _txlock=immediate so the reserved lock is taken at BEGIN.
func (s *SQLiteStore) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.maint.RLock()
	defer s.maint.RUnlock()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ApplyTrain(ctx context.Context, d trainer.Deltas, ev *model.TrainEvent) error {
	if d.Empty() && ev == nil {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, id := range d.WordIDs() {
			res, err := tx.ExecContext(ctx,
				`UPDATE word_weight SET weight_user = weight_user + ? WHERE word_id = ?`,
				d.Weights[id], id)
			if err != nil {
				return fmt.Errorf("update weight %d: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: %d", ErrUnknownWord, id)
			}
		}

		for _, k := range d.TransitionKeys() {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO word_transition (word_id, predecessor_id, value_user) VALUES (?, ?, ?)
				 ON CONFLICT(word_id, predecessor_id) DO UPDATE SET
				   value_user = word_transition.value_user + excluded.value_user`,
				k.Word.Key(), k.Prev.Key(), d.Transitions[k])
			if err != nil {
				return fmt.Errorf("upsert transition %v<-%v: %w", k.Word, k.Prev, err)
			}
		}

		if ev != nil {
			if err := insertEvent(ctx, tx, ev); err != nil {
				return fmt.Errorf("journal event: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ApplyUndo(ctx context.Context, d trainer.Deltas, eventID string) error {
	if d.Empty() && eventID == "" {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if eventID != "" {
			res, err := tx.ExecContext(ctx,
				`UPDATE train_events SET undone_at = ? WHERE id = ? AND undone_at IS NULL`,
				time.Now().UTC().Format(time.RFC3339), eventID)
			if err != nil {
				return fmt.Errorf("mark event undone: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
			}
		}
		return subtractUser(ctx, tx, d)
	})
}

// ApplyUndoPhrase reverses one recording of phrase. The newest active
// journal event for that phrase with count 1 is marked undone in the same
// transaction, if there is one.
func (s *SQLiteStore) ApplyUndoPhrase(ctx context.Context, phrase model.Phrase) error {
	d := trainer.Calc(phrase, 1)
	if d.Empty() {
		return nil
	}
	encoded, err := json.Marshal(phrase)
	if err != nil {
		return err
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE train_events SET undone_at = ?
			 WHERE id = (SELECT id FROM train_events
			             WHERE phrase = ? AND count = 1 AND undone_at IS NULL
			             ORDER BY id DESC LIMIT 1)`,
			time.Now().UTC().Format(time.RFC3339), string(encoded))
		if err != nil {
			return fmt.Errorf("mark event undone: %w", err)
		}
		return subtractUser(ctx, tx, d)
	})
}

// subtractUser removes d from the user counters, flooring at zero.
func subtractUser(ctx context.Context, tx *sql.Tx, d trainer.Deltas) error {
	for _, id := range d.WordIDs() {
		_, err := tx.ExecContext(ctx,
			`UPDATE word_weight SET weight_user = MAX(weight_user - ?, 0) WHERE word_id = ?`,
			d.Weights[id], id)
		if err != nil {
			return fmt.Errorf("update weight %d: %w", id, err)
		}
	}

	for _, k := range d.TransitionKeys() {
		_, err := tx.ExecContext(ctx,
			`UPDATE word_transition SET value_user = MAX(value_user - ?, 0)
			 WHERE word_id = ? AND predecessor_id = ?`,
			d.Transitions[k], k.Word.Key(), k.Prev.Key())
		if err != nil {
			return fmt.Errorf("update transition %v<-%v: %w", k.Word, k.Prev, err)
		}
	}
	return nil
}

// ApplyBase adds d to the base (bundled corpus) counters.
func (s *SQLiteStore) ApplyBase(ctx context.Context, d trainer.Deltas) error {
	if d.Empty() {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, id := range d.WordIDs() {
			res, err := tx.ExecContext(ctx,
				`UPDATE word_weight SET weight_base = weight_base + ? WHERE word_id = ?`,
				d.Weights[id], id)
			if err != nil {
				return fmt.Errorf("update base weight %d: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: %d", ErrUnknownWord, id)
			}
		}
		for _, k := range d.TransitionKeys() {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO word_transition (word_id, predecessor_id, value_base) VALUES (?, ?, ?)
				 ON CONFLICT(word_id, predecessor_id) DO UPDATE SET
				   value_base = word_transition.value_base + excluded.value_base`,
				k.Word.Key(), k.Prev.Key(), d.Transitions[k])
			if err != nil {
				return fmt.Errorf("upsert base transition %v<-%v: %w", k.Word, k.Prev, err)
			}
		}
		return nil
	})
}

// Compact deletes transition rows whose base and user counts are both
// zero. It blocks all other reads and writes while it runs.
func (s *SQLiteStore) Compact(ctx context.Context) (int64, error) {
	s.maint.Lock()
	defer s.maint.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM word_transition WHERE value_base = 0 AND value_user = 0`)
	if err != nil {
		return 0, fmt.Errorf("compact: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, ev *model.TrainEvent) error {
	phrase, err := json.Marshal(ev.Phrase)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO train_events (id, phrase, count, created_at) VALUES (?, ?, ?, ?)`,
		ev.ID, string(phrase), ev.Count, ev.CreatedAt.UTC().Format(time.RFC3339))
	return err
}
