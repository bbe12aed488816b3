package matching

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxFeatures bounds the vocabulary used for interest similarity
const DefaultMaxFeatures = 100

// Similarity compares two free-text documents.
// Implementations must be symmetric and return a value in [0, 1].
type Similarity interface {
	Similarity(a, b string) float64
}

// SimilarityFunc adapts a plain function to Similarity
type SimilarityFunc func(a, b string) float64

func (f SimilarityFunc) Similarity(a, b string) float64 {
	return f(a, b)
}

// TFIDFCosine scores two documents by the cosine of their TF-IDF vectors.
// IDF is computed over the pair being compared, so shared terms weigh less
// than terms unique to one side.
type TFIDFCosine struct {
	maxFeatures int
	stopWords   map[string]struct{}
}

// NewTFIDFCosine creates a scorer keeping at most maxFeatures terms
func NewTFIDFCosine(maxFeatures int) *TFIDFCosine {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &TFIDFCosine{
		maxFeatures: maxFeatures,
		stopWords:   englishStopWords,
	}
}

// Similarity returns 0 when either document has no usable terms
func (t *TFIDFCosine) Similarity(a, b string) float64 {
	tfA := t.termCounts(a)
	tfB := t.termCounts(b)
	if len(tfA) == 0 || len(tfB) == 0 {
		return 0
	}

	vocab := t.vocabulary(tfA, tfB)

	const docs = 2.0
	var dot, normA, normB float64
	for _, term := range vocab {
		ca, cb := float64(tfA[term]), float64(tfB[term])
		df := 0.0
		if ca > 0 {
			df++
		}
		if cb > 0 {
			df++
		}
		idf := math.Log((1+docs)/(1+df)) + 1

		wa, wb := ca*idf, cb*idf
		dot += wa * wb
		normA += wa * wa
		normB += wb * wb
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	return clamp01(sim)
}

// vocabulary keeps the most frequent terms across both documents.
// Ties sort by term so the result does not depend on argument order.
func (t *TFIDFCosine) vocabulary(tfA, tfB map[string]int) []string {
	total := make(map[string]int, len(tfA)+len(tfB))
	for term, n := range tfA {
		total[term] += n
	}
	for term, n := range tfB {
		total[term] += n
	}

	terms := make([]string, 0, len(total))
	for term := range total {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if total[terms[i]] != total[terms[j]] {
			return total[terms[i]] > total[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > t.maxFeatures {
		terms = terms[:t.maxFeatures]
	}
	return terms
}

func (t *TFIDFCosine) termCounts(doc string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range Tokenize(doc) {
		if _, stop := t.stopWords[tok]; stop {
			continue
		}
		counts[tok]++
	}
	return counts
}

// Tokenize lowercases doc and splits it into runs of word characters
// (letters, digits, underscore) of at least two runes
func Tokenize(doc string) []string {
	fields := strings.FieldsFunc(strings.ToLower(doc), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

var englishStopWords = toSet(
	"a", "about", "above", "across", "after", "afterwards", "again", "against", "all", "almost",
	"alone", "along", "already", "also", "although", "always", "am", "among", "amongst", "an",
	"and", "another", "any", "anyhow", "anyone", "anything", "anyway", "anywhere", "are", "around",
	"as", "at", "back", "be", "became", "because", "become", "becomes", "been", "before",
	"beforehand", "behind", "being", "below", "beside", "besides", "between", "beyond", "both", "but",
	"by", "can", "cannot", "could", "did", "do", "does", "done", "down", "due",
	"during", "each", "eg", "either", "else", "elsewhere", "enough", "etc", "even", "ever",
	"every", "everyone", "everything", "everywhere", "except", "few", "for", "former", "formerly", "from",
	"further", "had", "has", "have", "he", "hence", "her", "here", "hereafter", "hereby",
	"herein", "hers", "herself", "him", "himself", "his", "how", "however", "ie", "if",
	"in", "indeed", "into", "is", "it", "its", "itself", "just", "last", "latter",
	"least", "less", "many", "may", "me", "meanwhile", "might", "mine", "more", "moreover",
	"most", "mostly", "much", "must", "my", "myself", "neither", "never", "nevertheless", "next",
	"no", "nobody", "none", "noone", "nor", "not", "nothing", "now", "nowhere", "of",
	"off", "often", "on", "once", "one", "only", "onto", "or", "other", "others",
	"otherwise", "our", "ours", "ourselves", "out", "over", "own", "per", "perhaps", "please",
	"rather", "re", "same", "seem", "seemed", "seeming", "seems", "several", "she", "should",
	"since", "so", "some", "somehow", "someone", "something", "sometime", "sometimes", "somewhere", "still",
	"such", "than", "that", "the", "their", "them", "themselves", "then", "thence", "there",
	"thereafter", "thereby", "therefore", "therein", "thereupon", "these", "they", "this", "those", "though",
	"through", "throughout", "thru", "thus", "to", "together", "too", "toward", "towards", "under",
	"until", "up", "upon", "us", "very", "via", "was", "we", "well", "were",
	"what", "whatever", "when", "whence", "whenever", "where", "whereafter", "whereas", "whereby", "wherein",
	"whereupon", "wherever", "whether", "which", "while", "whither", "who", "whoever", "whole", "whom",
	"whose", "why", "will", "with", "within", "without", "would", "yet", "you", "your",
	"yours", "yourself", "yourselves",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
