// Package encoder provides the corpus-fitted TF-IDF vector encoder.
package encoder

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperjump/tansaku/pkg/utils"
)

// Name identifies the encoder implementation in snapshot metadata.
const Name = "tfidf"

var (
	// ErrNotFitted is returned by Transform before a successful Fit.
	ErrNotFitted = errors.New("encoder not fitted")
	// ErrEmptyCorpus is returned by Fit when the corpus is empty or
	// yields no vocabulary terms.
	ErrEmptyCorpus = errors.New("empty corpus")
)

// TFIDF is a TF-IDF vector encoder. Fit builds a fixed vocabulary of
// unigrams and bigrams over a corpus; Transform projects any text into
// that frozen vocabulary's dimensions. Fit replaces the whole state;
// an index built from an earlier fit is invalidated by refitting.
//
// A fitted TFIDF is read-only and safe for concurrent Transform calls.
type TFIDF struct {
	maxFeatures int
	vocabulary  map[string]int
	terms       []string  // dimension order (sorted)
	weights     []float64 // smoothed IDF per dimension
	fitted      bool

	tokenRe   *regexp.Regexp
	stopwords map[string]struct{}
}

// New creates an unfitted encoder whose vocabulary will be capped at
// maxFeatures terms.
func New(maxFeatures int) *TFIDF {
	if maxFeatures <= 0 {
		maxFeatures = 1000
	}
	return &TFIDF{
		maxFeatures: maxFeatures,
		tokenRe:     regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:   defaultStopwords(),
	}
}

// Name returns the encoder identifier.
func (e *TFIDF) Name() string { return Name }

// Fitted reports whether Fit has completed.
func (e *TFIDF) Fitted() bool { return e.fitted }

// Dimension returns the vocabulary size, or 0 before fitting.
func (e *TFIDF) Dimension() int { return len(e.terms) }

// Fit builds the vocabulary and term weights from the corpus. Terms are
// unigrams and bigrams of lowercased letter runs with stop words
// removed. When more than maxFeatures distinct terms exist, the top
// maxFeatures by corpus-wide weight (occurrence count times smoothed
// IDF, ties broken lexicographically) are kept. The surviving terms are
// sorted, so fitting the same corpus twice yields the same vocabulary
// in the same order.
func (e *TFIDF) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return ErrEmptyCorpus
	}

	df := make(map[string]int)
	counts := make(map[string]int)
	for _, text := range corpus {
		feats := e.features(text)
		seen := make(map[string]struct{}, len(feats))
		for _, f := range feats {
			counts[f]++
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			df[f]++
		}
	}
	if len(df) == 0 {
		return ErrEmptyCorpus
	}

	n := float64(len(corpus))
	idf := func(term string) float64 {
		return math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) > e.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			wi := float64(counts[terms[i]]) * idf(terms[i])
			wj := float64(counts[terms[j]]) * idf(terms[j])
			if wi != wj {
				return wi > wj
			}
			return terms[i] < terms[j]
		})
		terms = terms[:e.maxFeatures]
	}
	sort.Strings(terms)

	e.terms = terms
	e.vocabulary = make(map[string]int, len(terms))
	e.weights = make([]float64, len(terms))
	for i, term := range terms {
		e.vocabulary[term] = i
		e.weights[i] = idf(term)
	}
	e.fitted = true
	return nil
}

// Transform encodes text into the fitted vocabulary: per in-vocabulary
// term, term frequency times the term's corpus weight. Terms outside
// the vocabulary contribute nothing. The result is L2-normalized, so
// inner products against other transformed vectors are cosine
// similarities. Each call allocates its own vector; Transform is safe
// for concurrent use.
func (e *TFIDF) Transform(text string) ([]float32, error) {
	if !e.fitted {
		return nil, ErrNotFitted
	}
	vec := make([]float32, len(e.terms))
	for _, f := range e.features(text) {
		if idx, ok := e.vocabulary[f]; ok {
			vec[idx] += float32(e.weights[idx])
		}
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// features returns the unigram and bigram terms of text: lowercased
// letter runs with stop words removed, and adjacent pairs of the
// surviving tokens joined by a space.
func (e *TFIDF) features(text string) []string {
	raw := e.tokenRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if _, stop := e.stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	feats := make([]string, 0, 2*len(tokens))
	feats = append(feats, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		feats = append(feats, tokens[i]+" "+tokens[i+1])
	}
	return feats
}

// State is the serializable encoder state persisted in a snapshot.
// Terms are in dimension order; Weights[i] is the weight of Terms[i].
type State struct {
	Name        string    `json:"name"`
	MaxFeatures int       `json:"max_features"`
	Terms       []string  `json:"terms"`
	Weights     []float64 `json:"weights"`
}

// State exports the fitted vocabulary and weights.
func (e *TFIDF) State() (*State, error) {
	if !e.fitted {
		return nil, ErrNotFitted
	}
	return &State{
		Name:        Name,
		MaxFeatures: e.maxFeatures,
		Terms:       e.terms,
		Weights:     e.weights,
	}, nil
}

// FromState restores a fitted encoder from persisted state.
func FromState(s *State) (*TFIDF, error) {
	if s.Name != Name {
		return nil, fmt.Errorf("unknown encoder %q", s.Name)
	}
	if len(s.Terms) == 0 {
		return nil, fmt.Errorf("encoder state has no terms")
	}
	if len(s.Terms) != len(s.Weights) {
		return nil, fmt.Errorf("encoder state has %d terms but %d weights", len(s.Terms), len(s.Weights))
	}
	e := New(s.MaxFeatures)
	e.terms = s.Terms
	e.weights = s.Weights
	e.vocabulary = make(map[string]int, len(s.Terms))
	for i, term := range s.Terms {
		e.vocabulary[term] = i
	}
	e.fitted = true
	return e, nil
}
