package matching

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("Coffee, a DESSERT & late-night café_bar! x 42")
	want := []string{"coffee", "dessert", "late", "night", "café_bar", "42"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTFIDFCosine(t *testing.T) {
	sim := NewTFIDFCosine(DefaultMaxFeatures)

	tests := []struct {
		name     string
		a, b     string
		min, max float64
	}{
		{"identical", "coffee and dessert", "coffee and dessert", 0.999, 1},
		{"disjoint", "hiking mountains", "coffee dessert", 0, 0},
		{"partial overlap", "eating coffee cafe", "coffee and dessert", 0.2, 0.3},
		{"empty side", "", "coffee", 0, 0},
		{"only stop words", "the and of", "the and of", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sim.Similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Fatalf("Similarity(%q, %q) = %f, want in [%f, %f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestTFIDFCosine_Symmetric(t *testing.T) {
	sim := NewTFIDFCosine(3)
	docs := []string{
		"coffee dessert coffee music",
		"music live jazz coffee",
		"board games and pizza night",
		"food:0.8 travel:0.4 location:10.7769,106.6955",
	}
	for _, a := range docs {
		for _, b := range docs {
			if ab, ba := sim.Similarity(a, b), sim.Similarity(b, a); ab != ba {
				t.Fatalf("Similarity not symmetric for %q / %q: %f vs %f", a, b, ab, ba)
			}
		}
	}
}

func TestTFIDFCosine_VocabularyCap(t *testing.T) {
	// With a single feature only the most frequent term survives: "alpha"
	sim := NewTFIDFCosine(1)
	a := strings.Repeat("alpha ", 5) + "beta"
	b := "alpha gamma delta"
	if got := sim.Similarity(a, b); got < 0.999 {
		t.Fatalf("Similarity with capped vocabulary = %f, want 1", got)
	}
}
