// Package trainer computes the additive count deltas for training phrases.
package trainer

import (
	"sort"

	"github.com/rcliao/pinyin-predict/internal/model"
)

// Sample is one phrase with its occurrence multiplier.
type Sample struct {
	Phrase model.Phrase `json:"phrase"`
	Count  int64        `json:"count"`
}

// Deltas holds the word-weight and transition increments for a batch.
// The same Deltas can be applied forward (train) or backward (undo).
type Deltas struct {
	Weights     map[int64]int64
	Transitions map[model.TransitionKey]int64
}

// NewDeltas returns empty, ready to use deltas.
func NewDeltas() Deltas {
	return Deltas{
		Weights:     make(map[int64]int64),
		Transitions: make(map[model.TransitionKey]int64),
	}
}

// Empty reports whether applying d would touch nothing.
func (d Deltas) Empty() bool {
	return len(d.Weights) == 0 && len(d.Transitions) == 0
}

// Calc returns the deltas for a single phrase used `count` times.
func Calc(phrase model.Phrase, count int64) Deltas {
	d := NewDeltas()
	d.add(phrase, count)
	return d
}

// CalcBatch accumulates the deltas of every sample.
func CalcBatch(samples []Sample) Deltas {
	d := NewDeltas()
	for _, s := range samples {
		d.add(s.Phrase, s.Count)
	}
	return d
}

func (d Deltas) add(phrase model.Phrase, count int64) {
	if len(phrase) == 0 || count <= 0 {
		return
	}
	for _, id := range phrase {
		d.Weights[id] += count
	}
	if len(phrase) < 2 {
		return
	}
	for i := 0; i <= len(phrase); i++ {
		curr := model.EOS
		if i < len(phrase) {
			curr = model.Real(phrase[i])
		}
		prev := model.BOS
		if i > 0 {
			prev = model.Real(phrase[i-1])
		}
		d.Transitions[model.TransitionKey{Word: curr, Prev: prev}] += count
		d.Transitions[model.TransitionKey{Word: curr, Prev: model.Total}] += count
	}
}

// WordIDs returns the touched word ids in ascending order.
func (d Deltas) WordIDs() []int64 {
	ids := make([]int64, 0, len(d.Weights))
	for id := range d.Weights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TransitionKeys returns the touched transition keys ordered by storage key
// (word, then predecessor) so writers visit rows in a stable order.
func (d Deltas) TransitionKeys() []model.TransitionKey {
	keys := make([]model.TransitionKey, 0, len(d.Transitions))
	for k := range d.Transitions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Word.Key() != b.Word.Key() {
			return a.Word.Key() < b.Word.Key()
		}
		return a.Prev.Key() < b.Prev.Key()
	})
	return keys
}
