package textutil

// Bigrams returns the multiset of adjacent character pairs of the normalized
// string, with word boundaries removed ("ab cd" yields ab, bc, cd).
func Bigrams(s string) map[string]int {
	runes := []rune(stripSpaces(Normalize(s)))
	if len(runes) < 2 {
		return nil
	}
	out := make(map[string]int, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		out[string(runes[i:i+2])]++
	}
	return out
}

// BigramSimilarity is the Sørensen–Dice coefficient over character bigrams of
// the normalized inputs. Equal normalized strings score 1; an empty input
// scores 0.
func BigramSimilarity(a, b string) float64 {
	na, nb := stripSpaces(Normalize(a)), stripSpaces(Normalize(b))
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	ba, bb := Bigrams(na), Bigrams(nb)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	var total, shared int
	for gram, count := range ba {
		total += count
		if other, ok := bb[gram]; ok {
			shared += min(count, other)
		}
	}
	for _, count := range bb {
		total += count
	}
	return 2 * float64(shared) / float64(total)
}

// Match is a scored candidate returned by BestMatch.
type Match struct {
	Index int
	Value string
	Score float64
}

// BestMatch returns the candidate most similar to target. Ties keep the
// earliest candidate. ok is false when no candidate reaches threshold.
func BestMatch(target string, candidates []string, threshold float64) (Match, bool) {
	best := Match{Index: -1}
	for i, candidate := range candidates {
		score := BigramSimilarity(target, candidate)
		if score > best.Score {
			best = Match{Index: i, Value: candidate, Score: score}
		}
	}
	if best.Index < 0 || best.Score < threshold {
		return best, false
	}
	return best, true
}

func stripSpaces(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r != ' ' {
			out = append(out, r)
		}
	}
	return string(out)
}
