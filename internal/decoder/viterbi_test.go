package decoder

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/rcliao/pinyin-predict/internal/model"
	"github.com/rcliao/pinyin-predict/internal/trainer"
)

type counts map[model.TransitionKey]int64

func (c counts) set(w, p model.Word, n int64) counts {
	c[model.TransitionKey{Word: w, Prev: p}] = n
	return c
}

func (c counts) count(w, p model.Word) int64 {
	return c[model.TransitionKey{Word: w, Prev: p}]
}

func fromDeltas(d trainer.Deltas) counts {
	c := counts{}
	for k, n := range d.Transitions {
		c[k] = n
	}
	return c
}

func candidates(sets map[int64][]int64) CandidateFunc {
	return func(reading int64, _ int) []int64 { return sets[reading] }
}

func phrases(results []Result) []model.Phrase {
	out := make([]model.Phrase, len(results))
	for i, r := range results {
		out[i] = r.Phrase
	}
	return out
}

func TestDecodeEmpty(t *testing.T) {
	c := counts{}
	sets := map[int64][]int64{1: {10}}
	for _, in := range []Input{
		{Readings: nil, Candidates: candidates(sets), Count: c.count, K: 3},
		{Readings: []int64{1}, Candidates: candidates(sets), Count: c.count, K: 0},
	} {
		res, err := Decode(in)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(res) != 0 {
			t.Errorf("expected empty result, got %v", res)
		}
	}
}

func TestDecodeNoCandidates(t *testing.T) {
	c := counts{}
	_, err := Decode(Input{
		Readings:   []int64{1, 2},
		Candidates: candidates(map[int64][]int64{1: {10}}),
		Count:      c.count,
		K:          1,
	})
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
	var ce *CandidateError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CandidateError, got %T", err)
	}
	if ce.Position != 1 || ce.Reading != 2 {
		t.Errorf("unexpected error detail: %+v", ce)
	}
}

func TestDecodeLearnedPair(t *testing.T) {
	c := fromDeltas(trainer.Calc(model.Phrase{10, 11}, 1))
	res, err := Decode(Input{
		Readings:   []int64{1, 2},
		Candidates: candidates(map[int64][]int64{1: {10, 12}, 2: {11, 13}}),
		Count:      c.count,
		K:          1,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []model.Phrase{{10, 11}}
	if !reflect.DeepEqual(phrases(res), want) {
		t.Errorf("expected %v, got %v", want, phrases(res))
	}
}

func TestDecodeSinglePositionRanking(t *testing.T) {
	c := counts{}.
		set(model.EOS, model.Total, 10).
		set(model.Real(1), model.BOS, 4).
		set(model.Real(1), model.Total, 8).
		set(model.EOS, model.Real(1), 2).
		set(model.Real(2), model.BOS, 6).
		set(model.Real(2), model.Total, 6).
		set(model.EOS, model.Real(2), 6)

	res, err := Decode(Input{
		Readings:   []int64{7},
		Candidates: candidates(map[int64][]int64{7: {3, 1, 2}}),
		Count:      c.count,
		K:          3,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []model.Phrase{{2}, {1}, {3}}
	if !reflect.DeepEqual(phrases(res), want) {
		t.Fatalf("expected %v, got %v", want, phrases(res))
	}

	expected := map[int64]float64{
		1: math.Log(0.4) + math.Log(0.5) + math.Log(0.2),
		2: math.Log(0.6) + math.Log(1.0) + math.Log(0.6),
		3: 3 * DefaultMinLog,
	}
	for _, r := range res {
		if math.Abs(r.LogProb-expected[r.Phrase[0]]) > 1e-9 {
			t.Errorf("word %d: expected log prob %f, got %f", r.Phrase[0], expected[r.Phrase[0]], r.LogProb)
		}
	}
}

func TestDecodeTiesByAscendingID(t *testing.T) {
	c := counts{}
	in := Input{
		Readings:   []int64{1, 2},
		Candidates: candidates(map[int64][]int64{1: {3, 1, 2}, 2: {9, 8, 8}}),
		Count:      c.count,
		K:          5,
	}
	res, err := Decode(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []model.Phrase{{1, 8}, {1, 9}}
	if !reflect.DeepEqual(phrases(res), want) {
		t.Errorf("expected %v, got %v", want, phrases(res))
	}

	for i := 0; i < 20; i++ {
		again, err := Decode(in)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !reflect.DeepEqual(again, res) {
			t.Fatalf("run %d differs: %v vs %v", i, again, res)
		}
	}
}

func TestDecodeKLargerThanCandidates(t *testing.T) {
	c := fromDeltas(trainer.CalcBatch([]trainer.Sample{
		{Phrase: model.Phrase{10, 11}, Count: 3},
		{Phrase: model.Phrase{12, 13}, Count: 1},
	}))
	res, err := Decode(Input{
		Readings:   []int64{1, 2},
		Candidates: candidates(map[int64][]int64{1: {10, 12}, 2: {11, 13}}),
		Count:      c.count,
		K:          10,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(res), res)
	}
	want := []model.Phrase{{10, 11}, {12, 13}}
	if !reflect.DeepEqual(phrases(res), want) {
		t.Errorf("expected %v, got %v", want, phrases(res))
	}
	if res[0].LogProb < res[1].LogProb {
		t.Error("results must be ordered best first")
	}
}

func TestDecodeOnePathPerFinalCandidate(t *testing.T) {
	// Four paths exist but only two final candidates, so K=3 yields two
	// results. 12 -> 13 never appears since 13 keeps only its best
	// predecessor.
	c := fromDeltas(trainer.CalcBatch([]trainer.Sample{
		{Phrase: model.Phrase{10, 11}, Count: 5},
		{Phrase: model.Phrase{10, 13}, Count: 2},
		{Phrase: model.Phrase{12, 13}, Count: 1},
	}))
	res, err := Decode(Input{
		Readings:   []int64{1, 2},
		Candidates: candidates(map[int64][]int64{1: {10, 12}, 2: {11, 13}}),
		Count:      c.count,
		K:          3,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []model.Phrase{{10, 11}, {10, 13}}
	if !reflect.DeepEqual(phrases(res), want) {
		t.Errorf("expected %v, got %v", want, phrases(res))
	}
}

func TestDecodeCustomMinLog(t *testing.T) {
	c := counts{}
	res, err := Decode(Input{
		Readings:   []int64{1},
		Candidates: candidates(map[int64][]int64{1: {4}}),
		Count:      c.count,
		K:          1,
		MinLog:     -7,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res[0].LogProb != -21 {
		t.Errorf("expected -21, got %f", res[0].LogProb)
	}
}
