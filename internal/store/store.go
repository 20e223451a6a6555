// Package store provides the counter store interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/pinyin-predict/internal/model"
	"github.com/rcliao/pinyin-predict/internal/trainer"
)

var (
	// ErrUnknownWord is returned when training touches a word id that is not
	// in the dictionary. The whole batch is rolled back.
	ErrUnknownWord = errors.New("unknown word id")
	// ErrUnknownReading is returned when a pinyin spelling has no reading id.
	ErrUnknownReading = errors.New("unknown reading")
	// ErrEventNotFound is returned when a journal event does not exist or
	// has already been undone.
	ErrEventNotFound = errors.New("train event not found")
)

// EventsParams holds parameters for listing journaled training events.
type EventsParams struct {
	Limit         int
	IncludeUndone bool
}

// Reader is the read side used by prediction.
type Reader interface {
	// CandidatesForReadings returns, per reading id, the word ids sharing
	// that reading in ascending order. One batched query.
	CandidatesForReadings(ctx context.Context, readingIDs []int64) (map[int64][]int64, error)

	// FetchCandidateTransitions returns every transition row whose word is
	// in wordIDs, plus the EOS rows whose predecessor is in wordIDs or TOTAL.
	// One batched query.
	FetchCandidateTransitions(ctx context.Context, wordIDs []int64) (map[model.TransitionKey]model.Transition, error)

	// ResolveReadings maps pinyin spellings to reading ids, in order.
	ResolveReadings(ctx context.Context, pinyin []string) ([]int64, error)

	// Words returns the dictionary rows for the given ids.
	Words(ctx context.Context, ids []int64) (map[int64]model.WordWeight, error)
}

// Writer applies trainer deltas. Every call is atomic.
type Writer interface {
	// ApplyTrain adds d to the user counters and journals ev if non-nil.
	ApplyTrain(ctx context.Context, d trainer.Deltas, ev *model.TrainEvent) error

	// ApplyUndo subtracts d from the user counters, flooring at zero, and
	// marks eventID undone if non-empty.
	ApplyUndo(ctx context.Context, d trainer.Deltas, eventID string) error

	// ApplyUndoPhrase reverses one recording of phrase and retires the
	// newest matching journal event, if any.
	ApplyUndoPhrase(ctx context.Context, phrase model.Phrase) error
}

// Store is the full counter store.
type Store interface {
	Reader
	Writer

	// Events lists journaled training events, newest first.
	Events(ctx context.Context, p EventsParams) ([]model.TrainEvent, error)

	// Event returns one journaled event by id.
	Event(ctx context.Context, id string) (*model.TrainEvent, error)

	// Close closes the store.
	Close() error
}
