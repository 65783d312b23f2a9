package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"wwfm/internal/content"
	"wwfm/internal/logging"
	"wwfm/internal/services/radiocult"
	"wwfm/internal/textutil"
)

// EpisodeSource lists CMS episodes broadcast in a time range.
type EpisodeSource interface {
	EpisodesBetween(ctx context.Context, start, end time.Time) ([]content.Episode, error)
}

// EventSource lists booked events in a time range.
type EventSource interface {
	Schedule(ctx context.Context, start, end time.Time) ([]radiocult.Event, error)
}

// ArtistSource lists the station's artist profiles.
type ArtistSource interface {
	Artists(ctx context.Context) ([]radiocult.Artist, error)
}

// Week is a built schedule.
type Week struct {
	Window  Window
	Entries []Entry
	Days    []Day
	// Partial is set when a source failed and its entries are missing.
	Partial bool
}

// Builder assembles weekly schedules. Events may be nil when RadioCult is not
// configured. Artists, when set, names the hosts of RadioCult events.
type Builder struct {
	Episodes EpisodeSource
	Events   EventSource
	Artists  ArtistSource
	Location *time.Location
	Days     int
	Logger   *slog.Logger
}

// Week builds the schedule for the window containing now. Sources are fetched
// concurrently; a failing source is logged and contributes nothing. An error
// is returned only when every configured source failed.
func (b *Builder) Week(ctx context.Context, now time.Time) (Week, error) {
	window := NewWindow(now, b.Location, b.Days)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(b.Logger, "schedule"))

	var (
		episodes   []content.Episode
		events     []radiocult.Event
		artists    []radiocult.Artist
		cmsErr     error
		eventsErr  error
		artistsErr error
	)
	var g errgroup.Group
	if b.Episodes != nil {
		g.Go(func() error {
			episodes, cmsErr = b.Episodes.EpisodesBetween(ctx, window.Start, window.End)
			return nil
		})
	}
	if b.Events != nil {
		g.Go(func() error {
			events, eventsErr = b.Events.Schedule(ctx, window.Start, window.End)
			return nil
		})
		if b.Artists != nil {
			g.Go(func() error {
				artists, artistsErr = b.Artists.Artists(ctx)
				return nil
			})
		}
	}
	_ = g.Wait()
	if artistsErr != nil {
		logging.WarnWithContext(logger, "radiocult artists unavailable", "schedule_artists_failed",
			logging.String(logging.FieldImpact, "radiocult entries shown without hosts"),
			logging.Error(artistsErr),
		)
	}

	configured, failed := 0, 0
	for _, src := range []struct {
		name    string
		present bool
		err     error
	}{
		{"cms", b.Episodes != nil, cmsErr},
		{"radiocult", b.Events != nil, eventsErr},
	} {
		if !src.present {
			continue
		}
		configured++
		if src.err == nil {
			continue
		}
		failed++
		logging.WarnWithContext(logger, "schedule source unavailable", "schedule_source_failed",
			logging.String("source", src.name),
			logging.String(logging.FieldImpact, fmt.Sprintf("schedule shown without %s entries", src.name)),
			logging.Error(src.err),
		)
	}
	if configured == 0 {
		return Week{}, errors.New("schedule: no sources configured")
	}
	if failed == configured {
		return Week{}, fmt.Errorf("schedule: all sources failed: %w", errors.Join(cmsErr, eventsErr))
	}

	cms := EntriesFromEpisodes(episodes)
	entries := Merge(window, cms, EntriesFromEvents(events, slugIndex(episodes), artistNames(artists)))
	return Week{
		Window:  window,
		Entries: entries,
		Days:    window.GroupByDay(entries),
		Partial: failed > 0,
	}, nil
}

// EntriesFromEpisodes maps CMS episodes to entries.
func EntriesFromEpisodes(episodes []content.Episode) []Entry {
	out := make([]Entry, 0, len(episodes))
	for _, ep := range episodes {
		duration := ep.Duration
		if duration <= 0 {
			duration = DefaultSlot
		}
		hosts := make([]string, 0, len(ep.Hosts))
		for _, host := range ep.Hosts {
			if host.Title != "" {
				hosts = append(hosts, host.Title)
			}
		}
		out = append(out, Entry{
			Start:  ep.Broadcast,
			End:    ep.Broadcast.Add(duration),
			Title:  ep.Title,
			Href:   ep.Path(),
			Image:  ep.Image.Src(),
			Hosts:  hosts,
			Source: SourceCMS,
		})
	}
	return out
}

// EntriesFromEvents maps RadioCult events to entries. An event links to a
// page only when its slugified title is a key of links. Hosts are the names
// of the event's artists found in artists.
func EntriesFromEvents(events []radiocult.Event, links, artists map[string]string) []Entry {
	out := make([]Entry, 0, len(events))
	for _, ev := range events {
		end := ev.End
		if !end.After(ev.Start) {
			end = ev.Start.Add(DefaultSlot)
		}
		var hosts []string
		for _, id := range ev.ArtistIDs {
			if name := artists[id]; name != "" {
				hosts = append(hosts, name)
			}
		}
		out = append(out, Entry{
			Start:  ev.Start,
			End:    end,
			Title:  ev.Title,
			Href:   links[textutil.Slugify(ev.Title)],
			Hosts:  hosts,
			Source: SourceRadioCult,
		})
	}
	return out
}

func artistNames(artists []radiocult.Artist) map[string]string {
	names := make(map[string]string, len(artists))
	for _, a := range artists {
		names[a.ID] = a.Name
	}
	return names
}

// slugIndex maps episode slugs, then slugified episode titles, then host
// slugs to their pages. Earlier keys win.
func slugIndex(episodes []content.Episode) map[string]string {
	links := make(map[string]string)
	add := func(key, href string) {
		if _, ok := links[key]; key != "" && !ok {
			links[key] = href
		}
	}
	for _, ep := range episodes {
		add(ep.Slug, ep.Path())
	}
	for _, ep := range episodes {
		add(textutil.Slugify(ep.Title), ep.Path())
	}
	for _, ep := range episodes {
		for _, host := range ep.Hosts {
			add(host.Slug, "/hosts/"+host.Slug)
		}
	}
	return links
}
