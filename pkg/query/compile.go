package query

import (
	"errors"
	"strings"

	"github.com/sumatoshi-tech/probe/pkg/tokenize"
)

// ErrMalformedQuery reports unbalanced parentheses, a dangling operator, or
// a query that reduces to nothing after stopword removal.
var ErrMalformedQuery = errors.New("probe: malformed query")

// Options controls how Compile builds variant sets and resolves implicit
// juxtaposition of bare words.
type Options struct {
	// AnyTerm makes juxtaposed bare words an implicit OR instead of AND.
	AnyTerm bool
	// Exact disables stemming/compound-splitting: variants become the
	// verbatim and lowercased forms, and phrases match literal substrings.
	Exact bool
	// Dictionary enables compound-word decomposition (ignored in Exact mode).
	Dictionary *tokenize.Dictionary
}

// Compile parses raw into a Query expression tree per spec 4.B.
func Compile(raw string, opts Options) (*Expr, error) {
	toks, err := lex(raw)
	if err != nil {
		return nil, err
	}

	if len(toks) == 0 {
		return nil, ErrMalformedQuery
	}

	p := &parser{toks: toks, opts: opts}

	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.pos != len(p.toks) {
		return nil, ErrMalformedQuery
	}

	terms := expr.Terms()
	if len(terms) == 0 {
		return nil, ErrMalformedQuery
	}

	if allVariantsEmpty(terms) {
		return nil, ErrMalformedQuery
	}

	return expr, nil
}

func allVariantsEmpty(terms []*Term) bool {
	for _, t := range terms {
		if len(t.Variants) > 0 {
			return false
		}
	}

	return true
}

type parser struct {
	toks []token
	pos  int
	opts Options
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}

	return p.toks[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}

	return t, ok
}

func (p *parser) parseOr() (*Expr, error) {
	left, err := p.parseSequence()
	if err != nil {
		return nil, err
	}

	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			break
		}

		p.pos++

		right, err := p.parseSequence()
		if err != nil {
			return nil, err
		}

		left = Or(left, right)
	}

	return left, nil
}

// parseSequence consumes one or more AND-connected (explicit or implicit)
// factors, stopping at OR, a closing paren, or end of input.
func (p *parser) parseSequence() (*Expr, error) {
	first, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	children := []*Expr{first}

	for {
		t, ok := p.peek()
		if !ok || t.kind == tokOr || t.kind == tokRParen {
			break
		}

		if t.kind == tokAnd {
			p.pos++
		}

		next, err := p.parseFactor()
		if err != nil {
			return nil, err
		}

		children = append(children, next)
	}

	if len(children) == 1 {
		return children[0], nil
	}

	if p.opts.AnyTerm {
		return Or(children...), nil
	}

	return And(children...), nil
}

func (p *parser) parseFactor() (*Expr, error) {
	t, ok := p.peek()
	if !ok {
		return nil, ErrMalformedQuery
	}

	switch t.kind {
	case tokNot, tokMinus:
		p.pos++

		child, err := p.parseFactor()
		if err != nil {
			return nil, err
		}

		return Not(child), nil
	case tokPlus:
		p.pos++

		child, err := p.parseFactor()
		if err != nil {
			return nil, err
		}

		markRequired(child)

		return child, nil
	case tokLParen:
		p.pos++

		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		closer, ok := p.next()
		if !ok || closer.kind != tokRParen {
			return nil, ErrMalformedQuery
		}

		return inner, nil
	case tokWord:
		p.pos++

		return p.buildTerm(t.text), nil
	case tokPhrase:
		p.pos++

		return p.buildPhrase(t.text), nil
	default:
		return nil, ErrMalformedQuery
	}
}

func markRequired(e *Expr) {
	if e.Kind == KindTerm {
		e.Term.Required = true
	}
}

func (p *parser) buildTerm(word string) *Expr {
	variants := p.variantsFor(word)

	return Leaf(&Term{Literal: word, Variants: variants})
}

func (p *parser) buildPhrase(text string) *Expr {
	if p.opts.Exact {
		return Leaf(&Term{Literal: text, Variants: []string{text}, Required: true, Phrase: true})
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return Leaf(&Term{Literal: text})
	}

	terms := make([]*Expr, 0, len(words))
	for _, w := range words {
		terms = append(terms, Leaf(&Term{Literal: w, Variants: p.variantsFor(w), Required: true}))
	}

	if len(terms) == 1 {
		return terms[0]
	}

	return And(terms...)
}

func (p *parser) variantsFor(word string) []string {
	if p.opts.Exact {
		return tokenize.ExactVariants(word)
	}

	return tokenize.Variants(word, tokenize.Options{Stem: true, Dictionary: p.opts.Dictionary})
}
