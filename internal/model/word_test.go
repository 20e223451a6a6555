package model

import "testing"

func TestSentinelKeys(t *testing.T) {
	if BOS.Key() != EOS.Key() {
		t.Errorf("BOS and EOS should share a storage key, got %d and %d", BOS.Key(), EOS.Key())
	}
	if Total.Key() == BOS.Key() {
		t.Error("TOTAL must not share a key with BOS/EOS")
	}
	if ValidWordID(BOS.Key()) || ValidWordID(Total.Key()) {
		t.Error("sentinel keys must be outside the real word id range")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	tests := []struct {
		w      Word
		asWord Word
		asPrev Word
	}{
		{Real(42), Real(42), Real(42)},
		{Real(0), Real(0), Real(0)},
		{EOS, EOS, BOS},
		{Total, Total, Total},
	}
	for _, tt := range tests {
		if got := FromWordKey(tt.w.Key()); got != tt.asWord {
			t.Errorf("FromWordKey(%d) = %v, want %v", tt.w.Key(), got, tt.asWord)
		}
		if got := FromPredecessorKey(tt.w.Key()); got != tt.asPrev {
			t.Errorf("FromPredecessorKey(%d) = %v, want %v", tt.w.Key(), got, tt.asPrev)
		}
	}
}

func TestCombined(t *testing.T) {
	tests := []struct {
		tr   Transition
		bias int64
		want int64
	}{
		{Transition{Base: 3}, 5, 3},
		{Transition{Base: 3, User: 1}, 5, 9},
		{Transition{User: 2}, 0, 2},
		{Transition{}, 5, 0},
	}
	for _, tt := range tests {
		if got := tt.tr.Combined(tt.bias); got != tt.want {
			t.Errorf("Combined(%+v, %d) = %d, want %d", tt.tr, tt.bias, got, tt.want)
		}
	}
}

func TestNormalizePinyin(t *testing.T) {
	tests := map[string]string{
		" Ni ": "ni",
		"lü4":  "lv4",
		"NU:":  "nv",
		"hao3": "hao3",
		"":     "",
	}
	for in, want := range tests {
		if got := NormalizePinyin(in); got != want {
			t.Errorf("NormalizePinyin(%q) = %q, want %q", in, got, want)
		}
	}
}
