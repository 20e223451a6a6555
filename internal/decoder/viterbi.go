// Package decoder implements Viterbi decoding of a reading sequence over a
// bigram character model.
//
// The decoder is pure: every count it needs is provided through Input.Count
// and it performs no I/O. Top-K results come from ranking the candidates at
// the final position and backtracking once from each of them; this is not
// a per-position K-best beam.
package decoder

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rcliao/pinyin-predict/internal/model"
)

// DefaultMinLog is the log-probability used for any zero count.
const DefaultMinLog = -50.0

// ErrNoCandidates is returned (wrapped in *CandidateError) when a position
// has no candidate words. Candidate resolution belongs to the caller, so
// this is a contract violation rather than "no prediction".
var ErrNoCandidates = errors.New("decoder: no candidates for reading")

// CandidateError names the position whose candidate set was empty.
type CandidateError struct {
	Position int
	Reading  int64
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("decoder: no candidates for reading %d at position %d", e.Reading, e.Position)
}

func (e *CandidateError) Unwrap() error { return ErrNoCandidates }

// CandidateFunc returns the word ids that can be read as `reading` at `pos`.
type CandidateFunc func(reading int64, pos int) []int64

// CountFunc returns the combined count for (word, prev), 0 if absent.
type CountFunc func(word, prev model.Word) int64

// Input holds everything a decode needs.
type Input struct {
	Readings   []int64
	Candidates CandidateFunc
	Count      CountFunc
	K          int
	// MinLog replaces log(n/d) when n or d is zero. Zero means DefaultMinLog.
	MinLog float64
}

// Result is one decoded phrase with its accumulated log-probability.
type Result struct {
	Phrase  model.Phrase `json:"phrase"`
	LogProb float64      `json:"log_prob"`
}

// cell is one lattice entry. prev indexes the previous column, -1 for BOS.
type cell struct {
	word    int64
	logProb float64
	prev    int
}

// Decode returns up to K phrases for in.Readings, best first.
func Decode(in Input) ([]Result, error) {
	n := len(in.Readings)
	if n == 0 || in.K <= 0 {
		return nil, nil
	}
	if in.Candidates == nil || in.Count == nil {
		return nil, errors.New("decoder: Candidates and Count are required")
	}
	minLog := in.MinLog
	if minLog == 0 {
		minLog = DefaultMinLog
	}
	safeLog := func(num, den int64) float64 {
		if num <= 0 || den <= 0 {
			return minLog
		}
		return math.Log(float64(num) / float64(den))
	}

	// Resolve every column first so an empty one fails before any work.
	columns := make([][]int64, n)
	for i, r := range in.Readings {
		ids := normalize(in.Candidates(r, i))
		if len(ids) == 0 {
			return nil, &CandidateError{Position: i, Reading: r}
		}
		columns[i] = ids
	}

	phraseTotal := in.Count(model.EOS, model.Total)

	lattice := make([][]cell, n)
	lattice[0] = make([]cell, len(columns[0]))
	for j, c := range columns[0] {
		w := model.Real(c)
		fromBOS := in.Count(w, model.BOS)
		lattice[0][j] = cell{
			word:    c,
			logProb: safeLog(fromBOS, phraseTotal) + safeLog(fromBOS, in.Count(w, model.Total)),
			prev:    -1,
		}
	}

	for i := 1; i < n; i++ {
		prevCol := lattice[i-1]
		col := make([]cell, len(columns[i]))
		for j, c := range columns[i] {
			w := model.Real(c)
			total := in.Count(w, model.Total)
			best, bestIdx := math.Inf(-1), -1
			// prevCol is in ascending id order and only a strictly better
			// score replaces best, so ties go to the smallest id.
			for k, p := range prevCol {
				score := p.logProb + safeLog(in.Count(w, model.Real(p.word)), total)
				if bestIdx < 0 || score > best {
					best, bestIdx = score, k
				}
			}
			col[j] = cell{word: c, logProb: best, prev: bestIdx}
		}
		lattice[i] = col
	}

	last := lattice[n-1]
	for j := range last {
		last[j].logProb += safeLog(in.Count(model.EOS, model.Real(last[j].word)), phraseTotal)
	}

	order := make([]int, len(last))
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := last[order[a]], last[order[b]]
		if ca.logProb != cb.logProb {
			return ca.logProb > cb.logProb
		}
		return ca.word < cb.word
	})

	k := in.K
	if k > len(order) {
		k = len(order)
	}
	results := make([]Result, 0, k)
	for _, j := range order[:k] {
		phrase := make(model.Phrase, n)
		idx := j
		for i := n - 1; i >= 0; i-- {
			c := lattice[i][idx]
			phrase[i] = c.word
			idx = c.prev
		}
		results = append(results, Result{Phrase: phrase, LogProb: last[j].logProb})
	}
	return results, nil
}

// normalize returns ids sorted ascending without duplicates.
func normalize(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	w := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[w-1] {
			out[w] = out[i]
			w++
		}
	}
	return out[:w]
}
