package store

import (
	"context"
	"os"

	"github.com/rcliao/pinyin-predict/internal/model"
)

// Stats holds database statistics.
type Stats struct {
	DBPath          string `json:"db_path"`
	DBSizeBytes     int64  `json:"db_size_bytes"`
	Readings        int    `json:"readings"`
	Words           int    `json:"words"`
	Transitions     int    `json:"transitions"`
	UserTransitions int    `json:"user_transitions"`
	ZeroTransitions int    `json:"zero_transitions"`
	SentencesBase   int64  `json:"sentences_base"`
	SentencesUser   int64  `json:"sentences_user"`
	Events          int    `json:"events"`
	ActiveEvents    int    `json:"active_events"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	s.maint.RLock()
	defer s.maint.RUnlock()

	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		dest  *int
		query string
	}{
		{&st.Readings, `SELECT COUNT(*) FROM readings`},
		{&st.Words, `SELECT COUNT(*) FROM word_weight`},
		{&st.Transitions, `SELECT COUNT(*) FROM word_transition`},
		{&st.UserTransitions, `SELECT COUNT(*) FROM word_transition WHERE value_user > 0`},
		{&st.ZeroTransitions, `SELECT COUNT(*) FROM word_transition WHERE value_base = 0 AND value_user = 0`},
		{&st.Events, `SELECT COUNT(*) FROM train_events`},
		{&st.ActiveEvents, `SELECT COUNT(*) FROM train_events WHERE undone_at IS NULL`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return st, err
		}
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(value_base), 0), COALESCE(SUM(value_user), 0) FROM word_transition
		 WHERE word_id = ? AND predecessor_id = ?`, model.EOS.Key(), model.Total.Key()).Scan(&st.SentencesBase, &st.SentencesUser)
	if err != nil {
		return st, err
	}

	return st, nil
}
