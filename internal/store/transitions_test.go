package store

import (
	"context"
	"testing"

	"github.com/rcliao/pinyin-predict/internal/model"
	"github.com/rcliao/pinyin-predict/internal/trainer"
)

func TestFetchCandidateTransitions(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	if err := s.ApplyTrain(ctx, trainer.CalcBatch([]trainer.Sample{
		{Phrase: model.Phrase{10, 11}, Count: 1},
		{Phrase: model.Phrase{12, 13}, Count: 1},
	}), nil); err != nil {
		t.Fatalf("train: %v", err)
	}

	rows, err := s.FetchCandidateTransitions(ctx, []int64{10, 11})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []model.TransitionKey{
		{Word: model.Real(10), Prev: model.BOS},
		{Word: model.Real(10), Prev: model.Total},
		{Word: model.Real(11), Prev: model.Real(10)},
		{Word: model.Real(11), Prev: model.Total},
		{Word: model.EOS, Prev: model.Real(11)},
		{Word: model.EOS, Prev: model.Total},
	}
	for _, k := range want {
		if _, ok := rows[k]; !ok {
			t.Errorf("missing row %v", k)
		}
	}
	if len(rows) != len(want) {
		t.Errorf("expected %d rows, got %d: %v", len(want), len(rows), rows)
	}
	if _, ok := rows[model.TransitionKey{Word: model.EOS, Prev: model.Real(13)}]; ok {
		t.Error("EOS rows for words outside the set must not be fetched")
	}
}

func TestCountsBias(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	if err := s.ApplyBase(ctx, trainer.Calc(model.Phrase{12, 11}, 1)); err != nil {
		t.Fatalf("base: %v", err)
	}
	if err := s.ApplyTrain(ctx, trainer.Calc(model.Phrase{10, 11}, 1), nil); err != nil {
		t.Fatalf("train: %v", err)
	}

	rows, err := s.FetchCandidateTransitions(ctx, []int64{10, 11, 12})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	c := NewCounts(rows, 3)

	if got := c.Count(model.Real(11), model.Real(10)); got != 4 {
		t.Errorf("user transition: expected 1+3, got %d", got)
	}
	if got := c.Count(model.Real(11), model.Real(12)); got != 1 {
		t.Errorf("base transition: expected 1, got %d", got)
	}
	if got := c.Count(model.Real(11), model.Total); got != 5 {
		t.Errorf("mixed total: expected 1+1+3, got %d", got)
	}
	if got := c.Count(model.Real(13), model.Real(10)); got != 0 {
		t.Errorf("absent row: expected 0, got %d", got)
	}
	if NewCounts(rows, -5).Count(model.Real(11), model.Real(10)) != 1 {
		t.Error("negative bias should be clamped to 0")
	}
}

func TestEventJournal(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	first := s.NewEvent(model.Phrase{10, 11}, 1)
	second := s.NewEvent(model.Phrase{12}, 2)
	for _, ev := range []*model.TrainEvent{first, second} {
		if err := s.ApplyTrain(ctx, trainer.Calc(ev.Phrase, ev.Count), ev); err != nil {
			t.Fatalf("train: %v", err)
		}
	}

	events, err := s.Events(ctx, EventsParams{})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 || events[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", events)
	}

	last, err := s.LastEvent(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last.ID != second.ID || last.Count != 2 {
		t.Errorf("unexpected last event %+v", last)
	}

	if err := s.ApplyUndo(ctx, trainer.Calc(first.Phrase, first.Count), first.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	ev, err := s.Event(ctx, first.ID)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if ev.UndoneAt == nil {
		t.Error("expected undone_at to be set")
	}

	// A second undo of the same event is refused and changes nothing.
	if err := s.ApplyTrain(ctx, trainer.Calc(model.Phrase{10, 11}, 1), nil); err != nil {
		t.Fatalf("train: %v", err)
	}
	err = s.ApplyUndo(ctx, trainer.Calc(first.Phrase, first.Count), first.ID)
	if err == nil {
		t.Fatal("expected error undoing twice")
	}
	if got := weightUser(t, s, 10); got != 1 {
		t.Errorf("refused undo must roll back, weight_user = %d", got)
	}

	active, _ := s.Events(ctx, EventsParams{})
	all, _ := s.Events(ctx, EventsParams{IncludeUndone: true})
	if len(active) != 1 || len(all) != 2 {
		t.Errorf("expected 1 active and 2 total events, got %d and %d", len(active), len(all))
	}
}

func TestApplyUndoPhraseRetiresNewestMatch(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	phrase := model.Phrase{10, 11}
	older := s.NewEvent(phrase, 1)
	newer := s.NewEvent(phrase, 1)
	batch := s.NewEvent(phrase, 3)
	other := s.NewEvent(model.Phrase{12, 13}, 1)
	for _, ev := range []*model.TrainEvent{older, newer, batch, other} {
		if err := s.ApplyTrain(ctx, trainer.Calc(ev.Phrase, ev.Count), ev); err != nil {
			t.Fatalf("train: %v", err)
		}
	}

	if err := s.ApplyUndoPhrase(ctx, phrase); err != nil {
		t.Fatalf("undo phrase: %v", err)
	}

	undone := map[string]bool{}
	all, err := s.Events(ctx, EventsParams{IncludeUndone: true})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	for _, ev := range all {
		undone[ev.ID] = ev.UndoneAt != nil
	}
	if !undone[newer.ID] {
		t.Error("expected newest single recording to be undone")
	}
	if undone[older.ID] || undone[batch.ID] || undone[other.ID] {
		t.Errorf("only one event should be retired, got %v", undone)
	}
	if got := weightUser(t, s, 10); got != 4 {
		t.Errorf("expected weight_user 4, got %d", got)
	}
}

func TestApplyUndoPhraseWithoutEvent(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	phrase := model.Phrase{10, 11}
	if err := s.ApplyTrain(ctx, trainer.Calc(phrase, 2), nil); err != nil {
		t.Fatalf("train: %v", err)
	}
	if err := s.ApplyUndoPhrase(ctx, phrase); err != nil {
		t.Fatalf("undo phrase: %v", err)
	}
	if got := weightUser(t, s, 11); got != 1 {
		t.Errorf("expected weight_user 1, got %d", got)
	}
}

func TestEventCorruptTimestamp(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO train_events (id, phrase, count, created_at) VALUES ('bad', '[10]', 1, 'yesterday')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Event(ctx, "bad"); err == nil {
		t.Error("expected an error for an unparseable created_at")
	}
	if _, err := s.Events(ctx, EventsParams{}); err == nil {
		t.Error("expected listing to surface the corrupt row")
	}
}
