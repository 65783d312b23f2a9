package migrate

import (
	"encoding/json"
	"testing"

	"wwfm/internal/services/cosmic"
)

func TestHasImage(t *testing.T) {
	cases := map[string]struct {
		thumbnail string
		metadata  string
		want      bool
	}{
		"thumbnail":      {thumbnail: "a.jpg", want: true},
		"no metadata":    {want: false},
		"null image":     {metadata: `{"image":null}`, want: false},
		"empty object":   {metadata: `{"image":{}}`, want: false},
		"image with url": {metadata: `{"image":{"url":"https://cdn/a.jpg"}}`, want: true},
		"image name":     {metadata: `{"image":"a.jpg"}`, want: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			obj := cosmic.Object{Thumbnail: tc.thumbnail, Metadata: json.RawMessage(tc.metadata)}
			if got := hasImage(obj); got != tc.want {
				t.Fatalf("hasImage = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBodyCandidates(t *testing.T) {
	m := &Migrator{settings: Settings{AssetBaseURL: "https://assets.example.com/"}}
	got := m.bodyCandidates([]string{"/uploads/Night_Moves.JPG?w=300", "//cdn.example.com/b.png", "/docs/notes.pdf"})
	if len(got) != 2 {
		t.Fatalf("expected two image candidates, got %+v", got)
	}
	if got[0].name != "Night Moves" || got[0].url != "https://assets.example.com/uploads/Night_Moves.JPG?w=300" || got[0].method != MethodBody {
		t.Fatalf("unexpected first candidate: %+v", got[0])
	}
	if got[1].url != "https://cdn.example.com/b.png" {
		t.Fatalf("protocol-relative src not resolved: %+v", got[1])
	}

	m.settings.AssetBaseURL = ""
	if got := m.bodyCandidates([]string{"/uploads/a.jpg"}); len(got) != 1 || got[0].url != "" {
		t.Fatalf("relative src without base should have no url: %+v", got)
	}
}
