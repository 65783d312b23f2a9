package migrate

import (
	"strings"

	"wwfm/internal/textutil"
)

// Classification methods.
const (
	MethodKeyword    = "keyword"
	MethodSimilarity = "similarity"
)

// DefaultKeywords maps canonical genre slugs to words that identify them in
// free-text labels. Entries for genres missing from the bucket are ignored.
func DefaultKeywords() map[string][]string {
	return map[string][]string{
		"jazz":         {"jazz", "bebop", "swing", "fusion", "big band"},
		"soul-funk":    {"soul", "funk", "rnb", "r&b", "rhythm and blues", "boogie", "disco"},
		"hip-hop":      {"hip hop", "hiphop", "rap", "boom bap", "grime", "trap"},
		"electronic":   {"electronic", "techno", "house", "electro", "ambient", "idm", "breakbeat", "drum and bass", "dnb", "jungle"},
		"brazil":       {"brazil", "brazilian", "samba", "bossa", "mpb", "baile"},
		"latin":        {"latin", "salsa", "cumbia", "reggaeton", "son", "bolero"},
		"africa":       {"afrobeat", "afrobeats", "highlife", "amapiano", "afro", "soukous", "kwaito"},
		"reggae-dub":   {"reggae", "dub", "dancehall", "ska", "rocksteady", "roots"},
		"experimental": {"experimental", "avant garde", "noise", "drone", "improv"},
		"rock":         {"rock", "punk", "indie", "psych", "psychedelic", "post punk"},
		"classical":    {"classical", "orchestral", "contemporary classical", "minimalism"},
		"global":       {"world", "global", "folk", "traditional"},
		"talk":         {"talk", "interview", "documentary", "spoken word"},
	}
}

// Genre is a canonical Cosmic genre a label can map onto.
type Genre struct {
	ID    string
	Slug  string
	Title string
}

// Classification is the result of mapping one label.
type Classification struct {
	Genre  Genre
	Method string
	Score  float64
}

// Classifier maps free-text labels onto canonical genres.
type Classifier struct {
	genres    []Genre
	titles    []string
	keywords  [][]string
	terms     []textutil.Terms
	threshold float64
}

// NewClassifier builds a classifier for genres. keywords is keyed by genre
// slug.
func NewClassifier(genres []Genre, keywords map[string][]string, threshold float64) *Classifier {
	c := &Classifier{threshold: threshold}
	for _, g := range genres {
		var words []string
		for _, kw := range keywords[g.Slug] {
			if norm := textutil.Normalize(kw); norm != "" {
				words = append(words, norm)
			}
		}
		// The genre's own name always counts as a keyword.
		if norm := textutil.Normalize(g.Title); norm != "" {
			words = append(words, norm)
		}
		c.genres = append(c.genres, g)
		c.titles = append(c.titles, g.Title)
		c.keywords = append(c.keywords, words)
		c.terms = append(c.terms, textutil.TermsOf(g.Title+" "+strings.Join(words, " ")))
	}
	return c
}

// Classify maps label onto a genre. Keyword hits win; when several genres
// have a keyword in the label, the one whose vocabulary is closest to the
// label by cosine similarity is chosen. Without a keyword hit the genre
// title with the best bigram similarity is used if it reaches the threshold.
func (c *Classifier) Classify(label string) (Classification, bool) {
	norm := textutil.Normalize(label)
	if norm == "" {
		return Classification{}, false
	}
	padded := " " + norm + " "

	best, bestScore := -1, -1.0
	labelTerms := textutil.TermsOf(label)
	for i, words := range c.keywords {
		hit := false
		for _, kw := range words {
			if strings.Contains(padded, " "+kw+" ") {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		score := labelTerms.Cosine(c.terms[i])
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		return Classification{Genre: c.genres[best], Method: MethodKeyword, Score: 1}, true
	}

	match, ok := textutil.BestMatch(label, c.titles, c.threshold)
	if !ok {
		return Classification{Score: match.Score}, false
	}
	return Classification{Genre: c.genres[match.Index], Method: MethodSimilarity, Score: match.Score}, true
}

// SplitLabels breaks a free-text genre field ("Jazz / Soul, Funk") into
// trimmed labels, dropping duplicates by normalized form.
func SplitLabels(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '/', '|', '\n':
			return true
		}
		return false
	})
	seen := map[string]bool{}
	var out []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		key := textutil.Normalize(part)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, part)
	}
	return out
}
