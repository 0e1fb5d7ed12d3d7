// Package search is the free-form fallback for questions the catalog does
// not cover: a BM25 index over documents derived from the dataset, with an
// optional model-written answer over the best sources.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/dataset"
	"rolplay-assistant-be/pkg/llm"
)

const module = "SEARCH"

type Config struct {
	TopK        int
	Temperature float64
}

func DefaultConfig() Config {
	return Config{TopK: 5, Temperature: 0.7}
}

// Source is one retrieved document with its relevance.
type Source struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// Answer mirrors {response, source_nodes}.
type Answer struct {
	Response    string   `json:"response"`
	SourceNodes []Source `json:"source_nodes"`
	Strategy    Strategy `json:"strategy"`
}

type Index struct {
	docs        []Document
	bm25        *bm25Index
	fingerprint string
	provider    llm.LLMProvider
	cfg         Config
	log         logger.ILogger
}

// NewIndex builds the index over ds. provider may be nil, in which case
// answers are the text of the best source.
func NewIndex(ds *dataset.Dataset, provider llm.LLMProvider, cfg Config, log logger.ILogger) *Index {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	docs := BuildDocuments(ds)
	idx := &Index{
		docs:        docs,
		bm25:        buildBM25(docs),
		fingerprint: Fingerprint(ds),
		provider:    provider,
		cfg:         cfg,
		log:         log,
	}
	log.Info(module, "search index built", map[string]interface{}{
		"documents":   len(docs),
		"fingerprint": idx.fingerprint,
	})
	return idx
}

func (i *Index) Len() int { return len(i.docs) }

func (i *Index) Fingerprint() string { return i.fingerprint }

// Fingerprint is the sha256 of the records, stable for identical data.
func Fingerprint(ds *dataset.Dataset) string {
	h := sha256.New()
	if ds != nil {
		enc := json.NewEncoder(h)
		for _, r := range ds.Records {
			// Record holds only strings, numbers and times; encoding cannot fail.
			_ = enc.Encode(r)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Query retrieves the best sources for q and answers over them.
func (i *Index) Query(ctx context.Context, q string) (Answer, error) {
	if len(i.docs) == 0 {
		return Answer{}, apperror.Empty("El índice de búsqueda está vacío")
	}

	filters := ParseQuery(q)
	strategy := DetermineStrategy(filters.Text)
	sources := i.retrieve(filters, strategy)
	if len(sources) == 0 && strategy == StrategyLiteral {
		strategy = StrategyRanked
		sources = i.retrieve(filters, strategy)
	}

	i.log.Debug(module, "sources retrieved", map[string]interface{}{
		"strategy": strategy,
		"sources":  len(sources),
	})

	if len(sources) == 0 {
		return Answer{
			Response:    "No encontré documentos relacionados con la consulta.",
			SourceNodes: []Source{},
			Strategy:    strategy,
		}, nil
	}

	answer := Answer{Response: strings.TrimSpace(sources[0].Text), SourceNodes: sources, Strategy: strategy}
	if i.provider == nil {
		return answer, nil
	}

	summary, err := i.provider.Chat(ctx, []llm.Message{
		llm.System(summarySystemPrompt),
		llm.User(buildSummaryPrompt(q, sources)),
	}, llm.WithTemperature(i.cfg.Temperature))
	if err != nil {
		i.log.Warn(module, "summary generation failed, answering with best source", map[string]interface{}{
			"error": err.Error(),
		})
		return answer, nil
	}
	answer.Response = strings.TrimSpace(summary)
	return answer, nil
}

func (i *Index) retrieve(f Filters, strategy Strategy) []Source {
	var scores []float64
	switch {
	case strings.TrimSpace(f.Text) == "":
		// Filters only: every matching document is equally relevant.
		scores = make([]float64, len(i.docs))
		for n := range scores {
			scores[n] = 1
		}
	case strategy == StrategyLiteral:
		scores = literalScores(i.docs, strings.Trim(strings.TrimSpace(f.Text), `"`))
	default:
		scores = i.bm25.score(f.Text)
	}

	type hit struct {
		doc   int
		score float64
	}
	var hits []hit
	for n, s := range scores {
		if s <= 0 || (!f.empty() && !f.matches(i.docs[n])) {
			continue
		}
		hits = append(hits, hit{n, s})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if len(hits) > i.cfg.TopK {
		hits = hits[:i.cfg.TopK]
	}

	out := make([]Source, len(hits))
	for n, h := range hits {
		d := i.docs[h.doc]
		meta := make(map[string]any, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			meta[k] = v
		}
		meta["document_type"] = string(d.Kind)
		out[n] = Source{Text: d.Text, Metadata: meta, Score: h.score}
	}
	return out
}

// literalScores counts case-insensitive occurrences of term.
func literalScores(docs []Document, term string) []float64 {
	out := make([]float64, len(docs))
	needle := strings.ToLower(term)
	if needle == "" {
		return out
	}
	for n, d := range docs {
		out[n] = float64(strings.Count(strings.ToLower(d.Text), needle))
	}
	return out
}

const summarySystemPrompt = "Eres un analista de datos de entrenamiento. Respondes en español usando " +
	"únicamente la información de los documentos proporcionados. Si los documentos no bastan, dilo."

func buildSummaryPrompt(query string, sources []Source) string {
	var b strings.Builder
	b.WriteString("<documentos>\n")
	for n, s := range sources {
		fmt.Fprintf(&b, "\n--- DOCUMENTO %d (%v) ---\n", n+1, s.Metadata["document_type"])
		b.WriteString(strings.TrimSpace(s.Text))
		b.WriteString("\n")
	}
	b.WriteString("</documentos>\n\n")
	b.WriteString("<pregunta>\n")
	b.WriteString(query)
	b.WriteString("\n</pregunta>\n\n")
	b.WriteString("Resume la respuesta combinando los documentos relevantes.")
	return b.String()
}
