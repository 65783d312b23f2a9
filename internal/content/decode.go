package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wwfm/internal/services/cosmic"
)

type imageMeta struct {
	URL      string `json:"url"`
	ImgixURL string `json:"imgix_url"`
}

func (m imageMeta) image(alt, fallback string) Image {
	img := Image{URL: m.URL, ImgixURL: m.ImgixURL, Alt: alt}
	if img.Empty() {
		img.URL = fallback
	}
	return img
}

// refs decodes a relation field, which Cosmic returns as IDs at depth 0 and
// as objects at depth 1.
type refs []Ref

func (r *refs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" || string(data) == `""` {
		*r = nil
		return nil
	}
	var items []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
	} else {
		items = []json.RawMessage{data}
	}
	out := make([]Ref, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || string(item) == "null" {
			continue
		}
		if item[0] == '"' {
			var id string
			if err := json.Unmarshal(item, &id); err != nil {
				return err
			}
			if id != "" {
				out = append(out, Ref{ID: id})
			}
			continue
		}
		var obj struct {
			ID    string `json:"id"`
			Slug  string `json:"slug"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return err
		}
		out = append(out, Ref{ID: obj.ID, Slug: obj.Slug, Title: obj.Title})
	}
	*r = out
	return nil
}

// flexDuration accepts minutes as a number or string, or "HH:MM[:SS]".
type flexDuration time.Duration

func (d *flexDuration) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	if raw[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d = flexDuration(parsed)
	return nil
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if minutes, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(minutes * float64(time.Minute)), nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("duration %q: expected minutes or HH:MM", raw)
	}
	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("duration %q: invalid component %q", raw, part)
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}

var broadcastLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// ParseBroadcast combines a broadcast date and optional HH:MM time in loc. A
// time of day carried by the date is used when clock is empty.
func ParseBroadcast(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	var parsed time.Time
	var err error
	for _, layout := range broadcastLayouts {
		if layout == time.RFC3339 {
			parsed, err = time.Parse(layout, date)
			if err == nil {
				parsed = parsed.In(loc)
			}
		} else {
			parsed, err = time.ParseInLocation(layout, date, loc)
		}
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("broadcast date %q: unsupported format", date)
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return parsed, nil
	}
	tod, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("broadcast time %q: expected HH:MM", clock)
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

type episodeMeta struct {
	BroadcastDate string       `json:"broadcast_date"`
	BroadcastTime string       `json:"broadcast_time"`
	Duration      flexDuration `json:"duration"`
	Image         imageMeta    `json:"image"`
	Description   string       `json:"description"`
	Body          string       `json:"body"`
	Tracklist     string       `json:"tracklist"`
	Player        string       `json:"player"`
	RegularHosts  refs         `json:"regular_hosts"`
	Genres        refs         `json:"genres"`
	Locations     refs         `json:"locations"`
	Takeovers     refs         `json:"takeovers"`
	Featured      bool         `json:"featured_on_homepage"`
}

func episodeFromObject(obj cosmic.Object, loc *time.Location) (Episode, error) {
	var meta episodeMeta
	if err := obj.DecodeMetadata(&meta); err != nil {
		return Episode{}, err
	}
	broadcast, err := ParseBroadcast(meta.BroadcastDate, meta.BroadcastTime, loc)
	if err != nil {
		return Episode{}, fmt.Errorf("episode %q: %w", obj.Slug, err)
	}
	return Episode{
		ID:          obj.ID,
		Slug:        obj.Slug,
		Title:       obj.Title,
		Broadcast:   broadcast,
		Duration:    time.Duration(meta.Duration),
		Image:       meta.Image.image(obj.Title, obj.Thumbnail),
		Description: meta.Description,
		Body:        firstNonEmpty(meta.Body, obj.Content),
		Tracklist:   meta.Tracklist,
		PlayerURL:   meta.Player,
		Hosts:       meta.RegularHosts,
		Genres:      meta.Genres,
		Locations:   meta.Locations,
		Takeovers:   meta.Takeovers,
		Featured:    meta.Featured,
	}, nil
}

type hostMeta struct {
	Image       imageMeta `json:"image"`
	Description string    `json:"description"`
	Genres      refs      `json:"genres"`
	Locations   refs      `json:"locations"`
}

func hostFromObject(obj cosmic.Object) (Host, error) {
	var meta hostMeta
	if err := obj.DecodeMetadata(&meta); err != nil {
		return Host{}, err
	}
	return Host{
		ID:          obj.ID,
		Slug:        obj.Slug,
		Title:       obj.Title,
		Image:       meta.Image.image(obj.Title, obj.Thumbnail),
		Description: firstNonEmpty(meta.Description, obj.Content),
		Genres:      meta.Genres,
		Locations:   meta.Locations,
	}, nil
}

type genreMeta struct {
	Image       imageMeta `json:"image"`
	Description string    `json:"description"`
}

func genreFromObject(obj cosmic.Object) (Genre, error) {
	var meta genreMeta
	if err := obj.DecodeMetadata(&meta); err != nil {
		return Genre{}, err
	}
	return Genre{
		ID:          obj.ID,
		Slug:        obj.Slug,
		Title:       obj.Title,
		Description: firstNonEmpty(meta.Description, obj.Content),
		Image:       meta.Image.image(obj.Title, obj.Thumbnail),
	}, nil
}

type postMeta struct {
	Date       string    `json:"date"`
	Image      imageMeta `json:"image"`
	Excerpt    string    `json:"excerpt"`
	Content    string    `json:"content"`
	Author     string    `json:"author"`
	Categories refs      `json:"categories"`
}

func postFromObject(obj cosmic.Object, loc *time.Location) (Post, error) {
	var meta postMeta
	if err := obj.DecodeMetadata(&meta); err != nil {
		return Post{}, err
	}
	published, err := ParseBroadcast(meta.Date, "", loc)
	if err != nil || published.IsZero() {
		published = obj.PublishedAt
	}
	return Post{
		ID:         obj.ID,
		Slug:       obj.Slug,
		Title:      obj.Title,
		Published:  published,
		Image:      meta.Image.image(obj.Title, obj.Thumbnail),
		Excerpt:    meta.Excerpt,
		Body:       firstNonEmpty(meta.Content, obj.Content),
		Author:     meta.Author,
		Categories: meta.Categories,
	}, nil
}

type videoMeta struct {
	Date        string    `json:"date"`
	Image       imageMeta `json:"image"`
	Description string    `json:"description"`
	VideoURL    string    `json:"video_url"`
}

func videoFromObject(obj cosmic.Object, loc *time.Location) (Video, error) {
	var meta videoMeta
	if err := obj.DecodeMetadata(&meta); err != nil {
		return Video{}, err
	}
	published, err := ParseBroadcast(meta.Date, "", loc)
	if err != nil || published.IsZero() {
		published = obj.PublishedAt
	}
	return Video{
		ID:          obj.ID,
		Slug:        obj.Slug,
		Title:       obj.Title,
		Published:   published,
		Image:       meta.Image.image(obj.Title, obj.Thumbnail),
		Description: firstNonEmpty(meta.Description, obj.Content),
		VideoURL:    meta.VideoURL,
	}, nil
}

type pageMeta struct {
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Image       imageMeta `json:"image"`
}

func pageFromObject(obj cosmic.Object) (Page, error) {
	var meta pageMeta
	if err := obj.DecodeMetadata(&meta); err != nil {
		return Page{}, err
	}
	return Page{
		ID:          obj.ID,
		Slug:        obj.Slug,
		Title:       obj.Title,
		Description: meta.Description,
		Body:        firstNonEmpty(meta.Content, obj.Content),
		Image:       meta.Image.image(obj.Title, obj.Thumbnail),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
