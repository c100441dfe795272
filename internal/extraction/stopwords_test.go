package extraction

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and drops punctuation",
			text: "Machine Learning, with Go!",
			want: []string{"machine", "learning", "with", "go"},
		},
		{
			name: "drops single runes and pure numbers",
			text: "a 2024 q3 report",
			want: []string{"q3", "report"},
		},
		{
			name: "korean text",
			text: "데이터 분석 보고서",
			want: []string{"데이터", "분석", "보고서"},
		},
		{
			name: "empty",
			text: "",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tokenize(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestFilterTokens(t *testing.T) {
	got := FilterTokens([]string{"the", "quarterly", "report", "and", "budget"})
	want := []string{"quarterly", "report", "budget"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterTokens = %v, want %v", got, want)
	}
}

func TestStripParticle(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"데이터를", "데이터"},
		{"분석에서", "분석"},
		{"보고서의", "보고서"},
		{"데이터", "데이터"},
		// Stem would shrink below two runes; keep as is.
		{"물을", "물을"},
		// Non-Korean terms are untouched even when they end in particle bytes.
		{"report", "report"},
	}
	for _, tt := range tests {
		if got := StripParticle(tt.term); got != tt.want {
			t.Errorf("StripParticle(%q) = %q, want %q", tt.term, got, tt.want)
		}
	}
}

func TestIsStopword(t *testing.T) {
	for _, w := range []string{"the", "and", "그리고", "하지만"} {
		if !IsStopword(w) {
			t.Errorf("expected %q to be a stopword", w)
		}
	}
	if IsStopword("quarterly") {
		t.Error("quarterly should not be a stopword")
	}
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		corpus, threshold int
		want              Strategy
	}{
		{0, 10, StrategyEmbedding},
		{9, 10, StrategyEmbedding},
		{10, 10, StrategyTFIDF},
		{100, 10, StrategyTFIDF},
	}
	for _, tt := range tests {
		if got := SelectStrategy(tt.corpus, tt.threshold); got != tt.want {
			t.Errorf("SelectStrategy(%d, %d) = %v, want %v", tt.corpus, tt.threshold, got, tt.want)
		}
	}
}
