package migrate

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarkdownConverter(t *testing.T) {
	convert := newMarkdownConverter("https://assets.example.com/")

	got, err := convert(`<h2>Tracks</h2><p>Hello <strong>world</strong> <img src="/uploads/a.jpg" alt="Cover"></p><script>alert(1)</script>`)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	for _, want := range []string{"## Tracks", "Hello **world**", "![Cover](https://assets.example.com/uploads/a.jpg)"} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "alert") {
		t.Errorf("script survived conversion:\n%s", got)
	}

	empty, err := convert("  <script>x</script> ")
	if err != nil || empty != "" {
		t.Fatalf("expected empty markdown, got %q err=%v", empty, err)
	}
}

func TestMarkdownConverterKeepsAbsoluteImages(t *testing.T) {
	convert := newMarkdownConverter("")
	got, err := convert(`<p><img src="https://cdn.example.com/b.png" alt="B"></p>`)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(got, "![B](https://cdn.example.com/b.png)") {
		t.Fatalf("unexpected markdown: %q", got)
	}
}

func TestImageSources(t *testing.T) {
	body := `<p><img src="/a.jpg"><img src="data:image/png;base64,xx"></p><div><img src=" //cdn.example.com/b.png "><img src="/a.jpg"></div>`
	want := []string{"/a.jpg", "//cdn.example.com/b.png"}
	if diff := cmp.Diff(want, imageSources(body)); diff != "" {
		t.Fatalf("imageSources mismatch (-want +got):\n%s", diff)
	}
	if got := imageSources("<p>no images</p>"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
