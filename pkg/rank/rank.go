// Package rank implements spec 4.G: it scores each candidate block
// against the query's terms using TF-IDF, BM25, or a hybrid of the two,
// then applies the spec's fixed multiplicative boosts.
package rank

import (
	"math"
	"sort"
	"strings"

	"github.com/sumatoshi-tech/probe/pkg/alg/stats"
	"github.com/sumatoshi-tech/probe/pkg/block"
	"github.com/sumatoshi-tech/probe/pkg/lang"
	"github.com/sumatoshi-tech/probe/pkg/query"
	"github.com/sumatoshi-tech/probe/pkg/tokenize"
	"github.com/sumatoshi-tech/probe/pkg/uast/pkg/node"
)

// Mode selects the scoring function.
type Mode string

// Scoring modes.
const (
	ModeTFIDF  Mode = "tfidf"
	ModeBM25   Mode = "bm25"
	ModeHybrid Mode = "hybrid"
)

// BM25 and hybrid tuning constants, per spec 4.G.
const (
	BM25K1      = 1.2
	BM25B       = 0.75
	HybridAlpha = 0.7

	requiredBoost  = 1.5
	missingBoost   = 0.0
	structuralKind = 1.2
	untestedBoost  = 0.7
	symbolBoost    = 1.1
)

// Options configures ranking.
type Options struct {
	Mode       Mode
	Alpha      float64 // hybrid blend weight; defaults to HybridAlpha if zero
	AllowTests bool
	Dictionary *tokenize.Dictionary
}

func (o Options) alpha() float64 {
	if o.Alpha > 0 {
		return o.Alpha
	}

	return HybridAlpha
}

func (o Options) mode() Mode {
	if o.Mode == "" {
		return ModeHybrid
	}

	return o.Mode
}

// Result pairs a block with its final score and rank position.
type Result struct {
	Block *block.Block
	Score float64
	Rank  int
}

// PositiveTerms returns the terms of expr that are not forbidden: the set
// the ranker scores against (forbidden matches are already excluded
// file-wide by the walker).
func PositiveTerms(expr *query.Expr) []*query.Term {
	forbidden := make(map[*query.Term]struct{})
	for _, t := range expr.ForbiddenTerms() {
		forbidden[t] = struct{}{}
	}

	var out []*query.Term

	for _, t := range expr.Terms() {
		if _, excluded := forbidden[t]; !excluded {
			out = append(out, t)
		}
	}

	return out
}

type document struct {
	block  *block.Block
	tf     map[*query.Term]int
	length int
}

// Rank scores blocks against terms and returns them ordered by descending
// final score, with the spec's stable tie-break (score desc, path asc,
// start line asc). fileContent supplies each block's source bytes, keyed
// by Block.Path, for term-frequency extraction.
func Rank(blocks []*block.Block, fileContent map[string][]byte, terms []*query.Term, required []*query.Term, opts Options) []Result {
	docs := make([]document, 0, len(blocks))

	for _, b := range blocks {
		text := blockText(b, fileContent[b.Path])
		tokens := tokenize.Tokenize(text, tokenize.Options{Stem: true, Dictionary: opts.Dictionary})
		docs = append(docs, document{block: b, tf: termFrequencies(tokens, terms), length: len(tokens)})
	}

	df := documentFrequencies(docs, terms)
	avgLen := averageLength(docs)

	base := scores(docs, terms, df, avgLen, opts.mode(), opts.alpha())

	results := make([]Result, 0, len(docs))

	for i, d := range docs {
		boost := boostFor(d, required, opts.AllowTests)
		if boost == missingBoost {
			continue
		}

		results = append(results, Result{Block: d.block, Score: base[i] * boost})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}

		if results[i].Block.Path != results[j].Block.Path {
			return results[i].Block.Path < results[j].Block.Path
		}

		return results[i].Block.StartLine < results[j].Block.StartLine
	})

	for i := range results {
		results[i].Rank = i + 1
	}

	return results
}

func blockText(b *block.Block, content []byte) string {
	if b.Node != nil {
		return nodeText(b.Node)
	}

	return lineRangeText(content, b.StartLine, b.EndLine)
}

func nodeText(n *node.Node) string {
	var sb strings.Builder

	n.VisitPreOrder(func(child *node.Node) {
		if lang.IsComment(child) {
			return
		}

		if child.Token != "" {
			sb.WriteString(child.Token)
			sb.WriteByte(' ')
		}
	})

	return sb.String()
}

func lineRangeText(content []byte, start, end int) string {
	lines := strings.Split(string(content), "\n")
	if start < 1 {
		start = 1
	}

	if end > len(lines) {
		end = len(lines)
	}

	if start > end || start > len(lines) {
		return ""
	}

	return strings.Join(lines[start-1:end], "\n")
}

func termFrequencies(tokens []string, terms []*query.Term) map[*query.Term]int {
	variantIndex := make(map[string][]*query.Term)

	for _, t := range terms {
		for _, v := range t.Variants {
			variantIndex[v] = append(variantIndex[v], t)
		}
	}

	tf := make(map[*query.Term]int, len(terms))

	for _, tok := range tokens {
		for _, t := range variantIndex[tok] {
			tf[t]++
		}
	}

	return tf
}

func documentFrequencies(docs []document, terms []*query.Term) map[*query.Term]int {
	df := make(map[*query.Term]int, len(terms))

	for _, t := range terms {
		for _, d := range docs {
			if d.tf[t] > 0 {
				df[t]++
			}
		}
	}

	return df
}

func averageLength(docs []document) float64 {
	if len(docs) == 0 {
		return 0
	}

	lengths := make([]int, len(docs))
	for i, d := range docs {
		lengths[i] = d.length
	}

	return stats.Mean(intsToFloats(lengths))
}

func intsToFloats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}

	return out
}

func idf(df, n int) float64 {
	return math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
}

func tfidfScore(d document, terms []*query.Term, df map[*query.Term]int, n int) float64 {
	var sum float64

	for _, t := range terms {
		sum += float64(d.tf[t]) * idf(df[t], n)
	}

	return sum
}

func bm25Score(d document, terms []*query.Term, df map[*query.Term]int, avgLen float64, n int) float64 {
	var sum float64

	for _, t := range terms {
		tf := float64(d.tf[t])
		if tf == 0 {
			continue
		}

		norm := 1 - BM25B + BM25B*float64(d.length)/math.Max(avgLen, 1)
		sum += idf(df[t], n) * (tf * (BM25K1 + 1)) / (tf + BM25K1*norm)
	}

	return sum
}

// scores computes the base (pre-boost) score for every document under
// mode. Hybrid blends BM25 and TF-IDF after independently min-max
// normalizing each over the candidate set (spec 4.G: "each side min-max
// normalized over the candidate set").
func scores(docs []document, terms []*query.Term, df map[*query.Term]int, avgLen float64, mode Mode, alpha float64) []float64 {
	n := len(docs)

	switch mode {
	case ModeTFIDF:
		out := make([]float64, n)
		for i, d := range docs {
			out[i] = tfidfScore(d, terms, df, n)
		}

		return out
	case ModeBM25:
		out := make([]float64, n)
		for i, d := range docs {
			out[i] = bm25Score(d, terms, df, avgLen, n)
		}

		return out
	default:
		bm25 := make([]float64, n)
		tfidf := make([]float64, n)

		for i, d := range docs {
			bm25[i] = bm25Score(d, terms, df, avgLen, n)
			tfidf[i] = tfidfScore(d, terms, df, n)
		}

		bm25Norm := minMaxNormalize(bm25)
		tfidfNorm := minMaxNormalize(tfidf)

		out := make([]float64, n)
		for i := range out {
			out[i] = alpha*bm25Norm[i] + (1-alpha)*tfidfNorm[i]
		}

		return out
	}
}

func minMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := stats.Min(values), stats.Max(values)

	if hi == lo {
		for i := range values {
			out[i] = 1
		}

		return out
	}

	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}

	return out
}

func boostFor(d document, required []*query.Term, allowTests bool) float64 {
	for _, t := range required {
		if d.tf[t] == 0 {
			return missingBoost
		}
	}

	boost := requiredBoost

	switch d.block.Kind {
	case lang.KindFunction, lang.KindMethod, lang.KindClass, lang.KindStruct, lang.KindInterface, lang.KindEnum:
		boost *= structuralKind
	}

	if d.block.ContainsTest && !allowTests {
		boost *= untestedBoost
	}

	if symbolMatchesTerm(d) {
		boost *= symbolBoost
	}

	return boost
}

func symbolMatchesTerm(d document) bool {
	if d.block.SymbolName == "" {
		return false
	}

	symbolTokens := tokenize.Tokenize(d.block.SymbolName, tokenize.Options{Stem: true})
	set := make(map[string]struct{}, len(symbolTokens))

	for _, tok := range symbolTokens {
		set[tok] = struct{}{}
	}

	for t := range d.tf {
		if d.tf[t] == 0 {
			continue
		}

		for _, v := range t.Variants {
			if _, ok := set[v]; ok {
				return true
			}
		}
	}

	return false
}
