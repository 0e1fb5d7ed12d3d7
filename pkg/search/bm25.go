package search

import (
	"math"
	"strings"
	"unicode"

	"rolplay-assistant-be/pkg/text"
)

// Okapi BM25 tuning.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var stopwords = map[string]bool{
	"a": true, "al": true, "con": true, "de": true, "del": true, "el": true,
	"en": true, "es": true, "la": true, "las": true, "lo": true, "los": true,
	"me": true, "mi": true, "o": true, "para": true, "por": true, "que": true,
	"se": true, "su": true, "un": true, "una": true, "y": true, "cual": true,
	"cuales": true, "como": true, "hay": true, "sobre": true,
}

// tokenize keeps content words, repeats included. Each whitespace field is
// normalized on its own since Normalize drops line breaks.
func tokenize(s string) []string {
	var out []string
	for _, field := range strings.FieldsFunc(s, unicode.IsSpace) {
		words := strings.FieldsFunc(text.Normalize(field), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if stopwords[w] {
				continue
			}
			out = append(out, w)
		}
	}
	return out
}

type bm25Doc struct {
	tf  map[string]int
	len int
}

// bm25Index is immutable after construction.
type bm25Index struct {
	docs   []bm25Doc
	idf    map[string]float64
	avgLen float64
}

func buildBM25(docs []Document) *bm25Index {
	idx := &bm25Index{idf: make(map[string]float64)}
	if len(docs) == 0 {
		return idx
	}

	df := make(map[string]int)
	total := 0
	for _, d := range docs {
		tokens := tokenize(d.Text)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			df[t]++
		}
		idx.docs = append(idx.docs, bm25Doc{tf: tf, len: len(tokens)})
		total += len(tokens)
	}

	n := len(docs)
	idx.avgLen = float64(total) / float64(n)
	for term, freq := range df {
		idx.idf[term] = math.Log(float64(n+1)/float64(freq+1)) + 1
	}
	return idx
}

// score returns the raw BM25 score of every document, aligned with the
// slice the index was built from.
func (idx *bm25Index) score(query string) []float64 {
	out := make([]float64, len(idx.docs))
	terms := make(map[string]bool)
	for _, t := range tokenize(query) {
		terms[t] = true
	}
	if len(terms) == 0 || idx.avgLen == 0 {
		return out
	}

	for i, doc := range idx.docs {
		dl := float64(doc.len)
		for term := range terms {
			tf, present := doc.tf[term]
			if !present {
				continue
			}
			f := float64(tf)
			norm := bm25K1 * (1 - bm25B + bm25B*dl/idx.avgLen)
			out[i] += idx.idf[term] * (f * (bm25K1 + 1)) / (f + norm)
		}
	}
	return out
}
