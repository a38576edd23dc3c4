package embed

import (
	"context"
	"errors"
	"math"
	"regexp"
	"slices"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// TFIDFProvider is a local, deterministic vectorizer. It only embeds after
// Fit, which returns a vector space built from the run's corpus. Vectors
// from different fits are not comparable.
type TFIDFProvider struct {
	stopwords map[string]struct{}
}

func NewTFIDFProvider() *TFIDFProvider {
	return &TFIDFProvider{stopwords: defaultStopwords()}
}

func (p *TFIDFProvider) Name() string { return "tfidf" }

// Dimensions is 0 until fitted.
func (p *TFIDFProvider) Dimensions() int { return 0 }

func (p *TFIDFProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("tf-idf provider not fitted to a corpus")
}

func (p *TFIDFProvider) Close() error { return nil }

// Fit builds the vocabulary and smoothed IDF values from corpus.
func (p *TFIDFProvider) Fit(ctx context.Context, corpus []string) (Provider, error) {
	if len(corpus) == 0 {
		return nil, errors.New("empty corpus for tf-idf fit")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seen := make(map[string]struct{})
		for _, tok := range p.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	if len(terms) == 0 {
		return nil, errors.New("no tokens found in corpus")
	}

	space := &tfidfSpace{
		parent:     p,
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float32, len(terms)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		space.vocabulary[term] = i
		space.idf[i] = float32(math.Log((1+n)/(1+float64(df[term]))) + 1.0)
	}
	return space, nil
}

// tfidfSpace is one fitted vocabulary. It is immutable after Fit.
type tfidfSpace struct {
	parent     *TFIDFProvider
	vocabulary map[string]int
	idf        []float32
}

func (s *tfidfSpace) Name() string { return s.parent.Name() }

func (s *tfidfSpace) Dimensions() int { return len(s.idf) }

func (s *tfidfSpace) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vector(text)
	}
	return out, nil
}

func (s *tfidfSpace) vector(text string) []float32 {
	vec := make([]float32, len(s.idf))
	tf := make(map[int]int)
	total := 0
	for _, tok := range s.parent.tokenize(text) {
		if idx, ok := s.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}
	for idx, count := range tf {
		vec[idx] = float32(count) / float32(total) * s.idf[idx]
	}
	normalize(vec)
	return vec
}

func (s *tfidfSpace) Close() error { return nil }

func (p *TFIDFProvider) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := p.stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// normalize scales v to unit L2 length in place. Zero vectors are left as is.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
