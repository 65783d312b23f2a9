package textutil

import (
	"math"
	"strings"
)

// Terms counts the words of a text, for comparing vocabularies.
type Terms map[string]int

// TermsOf counts the tokens of text. Nil means text had no usable tokens.
func TermsOf(text string) Terms {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	t := make(Terms, len(tokens))
	for _, token := range tokens {
		t[token]++
	}
	return t
}

// Tokenize normalizes text and splits it into tokens, dropping tokens shorter
// than 3 characters ("dj", "&") which carry no genre signal.
func Tokenize(text string) []string {
	var terms []string
	for _, token := range strings.Fields(Normalize(text)) {
		if len(token) >= 3 {
			terms = append(terms, token)
		}
	}
	return terms
}

// Cosine returns the cosine similarity of the two term vectors, 0 when either
// is empty.
func (t Terms) Cosine(other Terms) float64 {
	if len(t) == 0 || len(other) == 0 {
		return 0
	}
	small, large := t, other
	if len(small) > len(large) {
		small, large = large, small
	}
	dot := 0
	for token, n := range small {
		dot += n * large[token]
	}
	if dot == 0 {
		return 0
	}
	return float64(dot) / (t.norm() * other.norm())
}

func (t Terms) norm() float64 {
	sum := 0
	for _, n := range t {
		sum += n * n
	}
	return math.Sqrt(float64(sum))
}
