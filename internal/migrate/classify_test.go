package migrate_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"wwfm/internal/migrate"
)

func testClassifier() *migrate.Classifier {
	return migrate.NewClassifier([]migrate.Genre{
		{ID: "g-jazz", Slug: "jazz", Title: "Jazz"},
		{ID: "g-soul", Slug: "soul-funk", Title: "Soul & Funk"},
		{ID: "g-elec", Slug: "electronic", Title: "Electronic"},
		{ID: "g-brazil", Slug: "brazil", Title: "Brazil"},
	}, migrate.DefaultKeywords(), migrate.DefaultThreshold)
}

func TestClassify(t *testing.T) {
	c := testClassifier()
	cases := []struct {
		label  string
		genre  string
		method string
		ok     bool
	}{
		{label: "Bebop", genre: "g-jazz", method: migrate.MethodKeyword, ok: true},
		{label: "Detroit Techno", genre: "g-elec", method: migrate.MethodKeyword, ok: true},
		{label: "Bossa Nova", genre: "g-brazil", method: migrate.MethodKeyword, ok: true},
		{label: "Rare Groove & Disco", genre: "g-soul", method: migrate.MethodKeyword, ok: true},
		{label: "Electronica", genre: "g-elec", method: migrate.MethodSimilarity, ok: true},
		{label: "Polka", ok: false},
		{label: "  ", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			got, ok := c.Classify(tc.label)
			if ok != tc.ok {
				t.Fatalf("Classify(%q) ok = %v, want %v (%+v)", tc.label, ok, tc.ok, got)
			}
			if !ok {
				return
			}
			if got.Genre.ID != tc.genre || got.Method != tc.method {
				t.Fatalf("Classify(%q) = %s via %s, want %s via %s", tc.label, got.Genre.ID, got.Method, tc.genre, tc.method)
			}
		})
	}
}

func TestClassifyKeywordsMatchWholeWords(t *testing.T) {
	c := testClassifier()
	// "soulful" must not hit the "soul" keyword.
	got, ok := c.Classify("Soulful House")
	if !ok || got.Genre.ID != "g-elec" {
		t.Fatalf("Classify(Soulful House) = %+v ok=%v, want electronic", got, ok)
	}
}

func TestClassifyKeywordTieUsesVocabulary(t *testing.T) {
	c := testClassifier()
	got, ok := c.Classify("Jazz Funk Fusion Swing")
	if !ok || got.Genre.ID != "g-jazz" {
		t.Fatalf("Classify = %+v ok=%v, want jazz", got, ok)
	}
}

func TestSplitLabels(t *testing.T) {
	got := migrate.SplitLabels("Jazz / Soul, funk;  jazz |Afro-Beat\nSOUL")
	want := []string{"Jazz", "Soul", "funk", "Afro-Beat"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SplitLabels mismatch (-want +got):\n%s", diff)
	}
	if got := migrate.SplitLabels(" , ; "); len(got) != 0 {
		t.Fatalf("expected no labels, got %v", got)
	}
}
