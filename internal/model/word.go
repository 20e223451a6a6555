// Package model defines the core word, transition and phrase types.
package model

import (
	"fmt"
	"time"
)

// Kind tags a Word as a real dictionary word or one of the sentinels.
type Kind uint8

const (
	KindReal Kind = iota
	KindBOS
	KindEOS
	KindTotal
)

// Storage keys for the sentinels. BOS only appears in the predecessor
// column and EOS only in the word column, so both share -1.
const (
	keyBOS   int64 = -1
	keyEOS   int64 = -1
	keyTotal int64 = -2
)

// Word is either a real (character, reading) pair or a sentinel.
type Word struct {
	Kind Kind
	ID   int64
}

var (
	BOS   = Word{Kind: KindBOS}
	EOS   = Word{Kind: KindEOS}
	Total = Word{Kind: KindTotal}
)

// Real returns the Word for a dictionary word id.
func Real(id int64) Word {
	return Word{Kind: KindReal, ID: id}
}

// IsReal reports whether w is a dictionary word.
func (w Word) IsReal() bool { return w.Kind == KindReal }

// Key returns the value stored in the word_id / predecessor_id columns.
func (w Word) Key() int64 {
	switch w.Kind {
	case KindBOS:
		return keyBOS
	case KindEOS:
		return keyEOS
	case KindTotal:
		return keyTotal
	}
	return w.ID
}

func (w Word) String() string {
	switch w.Kind {
	case KindBOS:
		return "BOS"
	case KindEOS:
		return "EOS"
	case KindTotal:
		return "TOTAL"
	}
	return fmt.Sprintf("%d", w.ID)
}

// FromWordKey decodes a word_id column value.
func FromWordKey(k int64) Word {
	switch k {
	case keyEOS:
		return EOS
	case keyTotal:
		return Total
	}
	return Real(k)
}

// FromPredecessorKey decodes a predecessor_id column value.
func FromPredecessorKey(k int64) Word {
	switch k {
	case keyBOS:
		return BOS
	case keyTotal:
		return Total
	}
	return Real(k)
}

// ValidWordID reports whether id can be assigned to a real word.
func ValidWordID(id int64) bool { return id >= 0 }

// Phrase is an ordered sequence of word ids.
type Phrase []int64

// TransitionKey identifies one row of word_transition.
type TransitionKey struct {
	Word Word
	Prev Word
}

// Transition holds the base and user counts for one (word, predecessor) pair.
type Transition struct {
	Word Word  `json:"-"`
	Prev Word  `json:"-"`
	Base int64 `json:"value_base"`
	User int64 `json:"value_user"`
}

// Key returns the transition's identity.
func (t Transition) Key() TransitionKey {
	return TransitionKey{Word: t.Word, Prev: t.Prev}
}

// Combined is the count used for decoding. Any user reinforcement earns
// the bias bonus so it outranks an equally frequent base-only pair.
func (t Transition) Combined(bias int64) int64 {
	n := t.Base + t.User
	if t.User > 0 {
		n += bias
	}
	return n
}

// WordWeight is one row of word_weight.
type WordWeight struct {
	WordID    int64  `json:"word_id"`
	ReadingID int64  `json:"reading_id"`
	Char      string `json:"char"`
	Base      int64  `json:"weight_base"`
	User      int64  `json:"weight_user"`
}

// Entry is a dictionary entry as loaded from the bundled corpus.
type Entry struct {
	ID     int64  `json:"id"`
	Char   string `json:"char"`
	Pinyin string `json:"pinyin"`
	Weight int64  `json:"weight,omitempty"`
}

// TrainEvent is a journaled "phrase used" confirmation.
type TrainEvent struct {
	ID        string     `json:"id"`
	Phrase    Phrase     `json:"phrase"`
	Count     int64      `json:"count"`
	CreatedAt time.Time  `json:"created_at"`
	UndoneAt  *time.Time `json:"undone_at,omitempty"`
}
