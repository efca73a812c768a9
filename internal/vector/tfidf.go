package vector

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches word tokens of at least two characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]{2,}`)

// Vectorizer turns text into term-weighted (TF-IDF) vectors over a vocabulary
// of unigrams and bigrams fitted across the whole corpus. Stop-words are
// removed before weighting and the vocabulary is capped at maxFeatures terms,
// chosen by corpus frequency.
type Vectorizer struct {
	maxFeatures int
	vocabulary  map[string]int
	idf         []float64
}

// NewVectorizer returns an unfitted vectorizer. maxFeatures <= 0 means
// unlimited vocabulary.
func NewVectorizer(maxFeatures int) *Vectorizer {
	return &Vectorizer{maxFeatures: maxFeatures}
}

// Fit builds the vocabulary and IDF weights from corpus. Any previous fit is
// discarded. A corpus containing no usable terms yields an empty vocabulary,
// for which every Transform returns a zero-dimension vector.
func (v *Vectorizer) Fit(corpus []string) {
	df := make(map[string]int)
	total := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, term := range terms(text) {
			total[term]++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	if v.maxFeatures > 0 && len(vocab) > v.maxFeatures {
		// Keep the most frequent terms, ties broken alphabetically.
		sort.Slice(vocab, func(i, j int) bool {
			if total[vocab[i]] != total[vocab[j]] {
				return total[vocab[i]] > total[vocab[j]]
			}
			return vocab[i] < vocab[j]
		})
		vocab = vocab[:v.maxFeatures]
	}
	sort.Strings(vocab)

	n := float64(len(corpus))
	v.vocabulary = make(map[string]int, len(vocab))
	v.idf = make([]float64, len(vocab))
	for i, term := range vocab {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
}

// Transform projects text into the fitted vector space and returns an
// L2-normalized TF-IDF vector. Terms outside the vocabulary are ignored.
func (v *Vectorizer) Transform(text string) []float64 {
	vec := make([]float64, len(v.idf))
	for _, term := range terms(text) {
		if idx, ok := v.vocabulary[term]; ok {
			vec[idx] += v.idf[idx]
		}
	}
	normalizeL2(vec)
	return vec
}

// Features returns the fitted vocabulary size.
func (v *Vectorizer) Features() int {
	return len(v.vocabulary)
}

// terms tokenizes text and returns its unigrams and bigrams, lowercased,
// with stop-words removed before n-gram formation.
func terms(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}
