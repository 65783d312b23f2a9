package content

import (
	"time"
)

// Cosmic object types read by the site.
const (
	TypeEpisodes  = "episodes"
	TypeHosts     = "regular-hosts"
	TypeGenres    = "genres"
	TypeLocations = "locations"
	TypeTakeovers = "takeovers"
	TypePosts     = "posts"
	TypeVideos    = "videos"
	TypePages     = "pages"
)

// Image is a CMS image with its CDN rendition.
type Image struct {
	URL      string
	ImgixURL string
	Alt      string
}

// Src returns the preferred image URL.
func (i Image) Src() string {
	if i.ImgixURL != "" {
		return i.ImgixURL
	}
	return i.URL
}

// Empty reports whether the image has no source.
func (i Image) Empty() bool {
	return i.Src() == ""
}

// Ref is a lightweight link to another object.
type Ref struct {
	ID    string
	Slug  string
	Title string
}

// Location and Takeover are only ever shown as links from episodes.
type (
	Location = Ref
	Takeover = Ref
)

// Episode is a single broadcast.
type Episode struct {
	ID          string
	Slug        string
	Title       string
	Broadcast   time.Time
	Duration    time.Duration
	Image       Image
	Description string
	Body        string
	Tracklist   string
	PlayerURL   string
	Hosts       []Ref
	Genres      []Ref
	Locations   []Location
	Takeovers   []Takeover
	Featured    bool
}

// Path is the site path of the episode page.
func (e Episode) Path() string {
	return "/episodes/" + e.Slug
}

// End returns when the broadcast finishes.
func (e Episode) End() time.Time {
	return e.Broadcast.Add(e.Duration)
}

// Host is a regular presenter.
type Host struct {
	ID          string
	Slug        string
	Title       string
	Image       Image
	Description string
	Genres      []Ref
	Locations   []Location
}

// Path is the site path of the host page.
func (h Host) Path() string {
	return "/hosts/" + h.Slug
}

// Genre is a canonical genre.
type Genre struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Image       Image
}

// Path is the site path of the genre page.
func (g Genre) Path() string {
	return "/genres/" + g.Slug
}

// Post is an editorial article.
type Post struct {
	ID         string
	Slug       string
	Title      string
	Published  time.Time
	Image      Image
	Excerpt    string
	Body       string
	Author     string
	Categories []Ref
}

// Path is the site path of the article.
func (p Post) Path() string {
	return "/editorial/" + p.Slug
}

// Video is an embedded video feature.
type Video struct {
	ID          string
	Slug        string
	Title       string
	Published   time.Time
	Image       Image
	Description string
	VideoURL    string
}

// Path is the site path of the video page.
func (v Video) Path() string {
	return "/videos/" + v.Slug
}

// Page is a static page such as About or Contact.
type Page struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Body        string
	Image       Image
}

// Results is one page of a listing.
type Results[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}

// HasMore reports whether further items exist after this page.
func (r Results[T]) HasMore() bool {
	return r.Offset+len(r.Items) < r.Total
}

// SearchResults groups matches per content type.
type SearchResults struct {
	Query    string
	Episodes []Episode
	Hosts    []Host
	Posts    []Post
}

// Empty reports whether nothing matched.
func (s SearchResults) Empty() bool {
	return len(s.Episodes) == 0 && len(s.Hosts) == 0 && len(s.Posts) == 0
}
