// Package predict orchestrates counter store reads, Viterbi decoding and
// training for callers such as the CLI and HTTP API.
package predict

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/rcliao/pinyin-predict/internal/decoder"
	"github.com/rcliao/pinyin-predict/internal/lexicon"
	"github.com/rcliao/pinyin-predict/internal/model"
	"github.com/rcliao/pinyin-predict/internal/store"
	"github.com/rcliao/pinyin-predict/internal/trainer"
)

// ErrTrainingFailed wraps every failure to apply or undo training.
var ErrTrainingFailed = errors.New("training failed")

// Backend is the store surface the service needs.
type Backend interface {
	store.Store
	NewEvent(phrase model.Phrase, count int64) *model.TrainEvent
	LastEvent(ctx context.Context) (*model.TrainEvent, error)
	PutEntries(ctx context.Context, entries []model.Entry) (int, error)
	ApplyBase(ctx context.Context, d trainer.Deltas) error
}

// Options tunes decoding.
type Options struct {
	UserBias int64
	MinLog   float64
	// CacheBytes sizes the reading → candidates cache.
	CacheBytes int
}

// Prediction is one ranked phrase.
type Prediction struct {
	Phrase  model.Phrase `json:"phrase"`
	Text    string       `json:"text"`
	LogProb float64      `json:"log_prob"`
}

// Service is safe for concurrent use. Writes are serialized by the store.
type Service struct {
	store  Backend
	cands  *lexicon.Cache
	opts   Options
	Logger *log.Logger
}

// NewService creates a service over b.
func NewService(b Backend, opts Options) *Service {
	return &Service{
		store: b,
		cands: lexicon.NewCache(b, opts.CacheBytes),
		opts:  opts,
	}
}

func (s *Service) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Predict returns up to k phrases for the reading sequence, best first.
// Store read failures are logged and yield an empty result; predictions are
// best effort. A reading without candidates is a caller error and is
// returned as decoder.ErrNoCandidates.
func (s *Service) Predict(ctx context.Context, readings []int64, k int) ([]Prediction, error) {
	if len(readings) == 0 || k <= 0 {
		return nil, nil
	}

	sets, err := s.cands.CandidatesForReadings(ctx, readings)
	if err != nil {
		s.logf("predict: candidate lookup failed: %v", err)
		return nil, nil
	}

	rows, err := s.store.FetchCandidateTransitions(ctx, unionIDs(sets))
	if err != nil {
		s.logf("predict: transition fetch failed: %v", err)
		return nil, nil
	}
	counts := store.NewCounts(rows, s.opts.UserBias)

	results, err := decoder.Decode(decoder.Input{
		Readings:   readings,
		Candidates: func(reading int64, _ int) []int64 { return sets[reading] },
		Count:      counts.Count,
		K:          k,
		MinLog:     s.opts.MinLog,
	})
	if err != nil {
		return nil, err
	}

	preds := make([]Prediction, len(results))
	for i, r := range results {
		preds[i] = Prediction{Phrase: r.Phrase, LogProb: r.LogProb}
	}
	s.render(ctx, preds)
	return preds, nil
}

// PredictPinyin resolves pinyin spellings to reading ids, then predicts.
// Unknown spellings are returned as store.ErrUnknownReading.
func (s *Service) PredictPinyin(ctx context.Context, syllables []string, k int) ([]Prediction, error) {
	if len(syllables) == 0 || k <= 0 {
		return nil, nil
	}
	readings, err := s.store.ResolveReadings(ctx, syllables)
	if err != nil {
		if errors.Is(err, store.ErrUnknownReading) {
			return nil, err
		}
		s.logf("predict: resolve readings failed: %v", err)
		return nil, nil
	}
	return s.Predict(ctx, readings, k)
}

// render fills Text from the dictionary. Failures leave Text empty.
func (s *Service) render(ctx context.Context, preds []Prediction) {
	if len(preds) == 0 {
		return
	}
	var ids []int64
	for _, p := range preds {
		ids = append(ids, p.Phrase...)
	}
	words, err := s.store.Words(ctx, ids)
	if err != nil {
		s.logf("predict: render failed: %v", err)
		return
	}
	for i := range preds {
		text := make([]byte, 0, 3*len(preds[i].Phrase))
		for _, id := range preds[i].Phrase {
			text = append(text, words[id].Char...)
		}
		preds[i].Text = string(text)
	}
}

// RecordUsed trains the store with a phrase the user confirmed and returns
// the journaled event.
func (s *Service) RecordUsed(ctx context.Context, phrase model.Phrase) (*model.TrainEvent, error) {
	if len(phrase) == 0 {
		return nil, fmt.Errorf("%w: empty phrase", ErrTrainingFailed)
	}
	ev := s.store.NewEvent(phrase, 1)
	if err := s.store.ApplyTrain(ctx, trainer.Calc(phrase, 1), ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	return ev, nil
}

// RecordBatch trains every sample in one atomic batch. Batches are not
// journaled.
func (s *Service) RecordBatch(ctx context.Context, samples []trainer.Sample) error {
	if err := s.store.ApplyTrain(ctx, trainer.CalcBatch(samples), nil); err != nil {
		return fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	return nil
}

// UndoUsed reverses one RecordUsed of phrase. The newest matching journal
// event is retired with it so it cannot be undone again.
func (s *Service) UndoUsed(ctx context.Context, phrase model.Phrase) error {
	if err := s.store.ApplyUndoPhrase(ctx, phrase); err != nil {
		return fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	return nil
}

// UndoEvent reverses a journaled event. Each event can be undone once.
func (s *Service) UndoEvent(ctx context.Context, id string) (*model.TrainEvent, error) {
	ev, err := s.store.Event(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	return s.undo(ctx, ev)
}

// UndoLast reverses the newest journaled event that is still active.
func (s *Service) UndoLast(ctx context.Context) (*model.TrainEvent, error) {
	ev, err := s.store.LastEvent(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	return s.undo(ctx, ev)
}

func (s *Service) undo(ctx context.Context, ev *model.TrainEvent) (*model.TrainEvent, error) {
	if err := s.store.ApplyUndo(ctx, trainer.Calc(ev.Phrase, ev.Count), ev.ID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	return ev, nil
}

// History lists journaled events, newest first.
func (s *Service) History(ctx context.Context, limit int, includeUndone bool) ([]model.TrainEvent, error) {
	return s.store.Events(ctx, store.EventsParams{Limit: limit, IncludeUndone: includeUndone})
}

// LoadDictionary upserts dictionary entries and drops cached candidate sets.
func (s *Service) LoadDictionary(ctx context.Context, entries []model.Entry) (int, error) {
	n, err := s.store.PutEntries(ctx, entries)
	s.cands.Reset()
	if err != nil {
		return n, fmt.Errorf("load dictionary: %w", err)
	}
	return n, nil
}

// LoadCorpus adds the samples to the base counters in one batch.
func (s *Service) LoadCorpus(ctx context.Context, samples []trainer.Sample) error {
	if err := s.store.ApplyBase(ctx, trainer.CalcBatch(samples)); err != nil {
		return fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	return nil
}

// CacheStats reports candidate cache hits and misses.
func (s *Service) CacheStats() (hits, misses uint64) {
	return s.cands.Stats()
}

func unionIDs(sets map[int64][]int64) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, set := range sets {
		for _, id := range set {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
