// Package legacy reads entries, assets and categories from a Craft CMS
// database.
//
// Only the tables the migration jobs need are touched: entries, sections,
// elements, elements_sites, content, assets, volumefolders, relations,
// categories and categorygroups, all under a configurable table prefix.
// Production reads go through the MySQL driver; any database/sql driver with
// the same schema works, which is how the tests run against SQLite.
package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Entry is a Craft entry with the content columns the jobs migrate.
type Entry struct {
	ID        int64
	Section   string
	Slug      string
	Title     string
	PostDate  time.Time
	Broadcast time.Time
	Body      string
	Tracklist string
	Mixcloud  string
	Genres    string
}

// Asset is an uploaded file.
type Asset struct {
	ID       int64
	Filename string
	Folder   string
	Title    string
	URL      string
}

// Category is a category and the entries it is attached to.
type Category struct {
	ID       int64
	Slug     string
	Title    string
	EntryIDs []int64
}

// Source reads a Craft database.
type Source struct {
	db           *sql.DB
	prefix       string
	assetBaseURL string
}

var validPrefix = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Open connects to the legacy database. driver is "mysql" or "sqlite".
func Open(driver, dsn, prefix, assetBaseURL string) (*Source, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("legacy dsn is required")
	}
	var db *sql.DB
	switch driver {
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse legacy dsn: %w", err)
		}
		// Dates are parsed here so both drivers share one code path.
		cfg.ParseTime = false
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("legacy connector: %w", err)
		}
		db = sql.OpenDB(connector)
	case "sqlite":
		opened, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open legacy sqlite: %w", err)
		}
		db = opened
	default:
		return nil, fmt.Errorf("legacy driver %q not supported", driver)
	}
	src, err := New(db, prefix, assetBaseURL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return src, nil
}

// New wraps an open database handle.
func New(db *sql.DB, prefix, assetBaseURL string) (*Source, error) {
	if db == nil {
		return nil, errors.New("legacy database handle is nil")
	}
	if !validPrefix.MatchString(prefix) {
		return nil, fmt.Errorf("legacy table prefix %q contains invalid characters", prefix)
	}
	return &Source{db: db, prefix: prefix, assetBaseURL: strings.TrimRight(assetBaseURL, "/")}, nil
}

// Close releases the database handle.
func (s *Source) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the connection.
func (s *Source) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping legacy database: %w", err)
	}
	return nil
}

// table expands {name} placeholders to prefixed table names.
func (s *Source) table(query string) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(query, '{')
		if open < 0 {
			b.WriteString(query)
			return b.String()
		}
		end := strings.IndexByte(query[open:], '}')
		if end < 0 {
			b.WriteString(query)
			return b.String()
		}
		b.WriteString(query[:open])
		b.WriteString(s.prefix)
		b.WriteString(query[open+1 : open+end])
		query = query[open+end+1:]
	}
}

const entryQuery = `
SELECT e.id, s.handle, COALESCE(es.slug, ''), COALESCE(c.title, ''), COALESCE(e.postDate, ''),
       COALESCE(c.field_broadcastDate, ''), COALESCE(c.field_body, ''), COALESCE(c.field_tracklist, ''),
       COALESCE(c.field_mixcloudUrl, ''), COALESCE(c.field_genres, '')
FROM {entries} e
JOIN {sections} s ON s.id = e.sectionId
JOIN {elements} el ON el.id = e.id
LEFT JOIN {elements_sites} es ON es.elementId = e.id
LEFT JOIN {content} c ON c.elementId = e.id
WHERE s.handle = ? AND el.dateDeleted IS NULL AND el.enabled = 1
ORDER BY e.id`

// Entries lists the live entries of a section in ID order.
func (s *Source) Entries(ctx context.Context, section string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.table(entryQuery), section)
	if err != nil {
		return nil, fmt.Errorf("query %s entries: %w", section, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry               Entry
			postDate, broadcast string
		)
		if err := rows.Scan(&entry.ID, &entry.Section, &entry.Slug, &entry.Title, &postDate,
			&broadcast, &entry.Body, &entry.Tracklist, &entry.Mixcloud, &entry.Genres); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.PostDate = parseTime(postDate)
		entry.Broadcast = parseTime(broadcast)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

const assetQuery = `
SELECT a.id, a.filename, COALESCE(f.path, ''), COALESCE(c.title, '')
FROM {assets} a
LEFT JOIN {volumefolders} f ON f.id = a.folderId
LEFT JOIN {elements} el ON el.id = a.id
LEFT JOIN {content} c ON c.elementId = a.id
WHERE el.dateDeleted IS NULL
ORDER BY a.id`

// Assets lists every live asset in ID order.
func (s *Source) Assets(ctx context.Context) ([]Asset, error) {
	return s.queryAssets(ctx, s.table(assetQuery))
}

const relatedAssetQuery = `
SELECT a.id, a.filename, COALESCE(f.path, ''), COALESCE(c.title, '')
FROM {relations} r
JOIN {assets} a ON a.id = r.targetId
LEFT JOIN {volumefolders} f ON f.id = a.folderId
LEFT JOIN {content} c ON c.elementId = a.id
WHERE r.sourceId = ?
ORDER BY r.sortOrder, a.id`

// RelatedAssets lists the assets attached to an entry in field order.
func (s *Source) RelatedAssets(ctx context.Context, entryID int64) ([]Asset, error) {
	return s.queryAssets(ctx, s.table(relatedAssetQuery), entryID)
}

func (s *Source) queryAssets(ctx context.Context, query string, args ...any) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var asset Asset
		if err := rows.Scan(&asset.ID, &asset.Filename, &asset.Folder, &asset.Title); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		asset.URL = s.assetURL(asset.Folder, asset.Filename)
		out = append(out, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return out, nil
}

func (s *Source) assetURL(folder, filename string) string {
	if s.assetBaseURL == "" {
		return ""
	}
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return s.assetBaseURL + "/" + filename
	}
	return s.assetBaseURL + "/" + folder + "/" + filename
}

const relatedEntryQuery = `
SELECT r.targetId
FROM {relations} r
JOIN {entries} e ON e.id = r.targetId
JOIN {sections} s ON s.id = e.sectionId
WHERE r.sourceId = ? AND s.handle = ?
ORDER BY r.sortOrder, r.targetId`

// RelatedEntries lists the IDs of section entries an entry links to.
func (s *Source) RelatedEntries(ctx context.Context, entryID int64, section string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.table(relatedEntryQuery), entryID, section)
	if err != nil {
		return nil, fmt.Errorf("query related entries: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan related entry: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const categoryQuery = `
SELECT cat.id, COALESCE(es.slug, ''), COALESCE(c.title, ''), r.sourceId
FROM {categories} cat
JOIN {categorygroups} g ON g.id = cat.groupId
JOIN {elements} el ON el.id = cat.id
LEFT JOIN {elements_sites} es ON es.elementId = cat.id
LEFT JOIN {content} c ON c.elementId = cat.id
LEFT JOIN {relations} r ON r.targetId = cat.id
WHERE g.handle = ? AND el.dateDeleted IS NULL
ORDER BY cat.id, r.sourceId`

// Categories lists the categories of a group with the entries using them.
func (s *Source) Categories(ctx context.Context, group string) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, s.table(categoryQuery), group)
	if err != nil {
		return nil, fmt.Errorf("query %s categories: %w", group, err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var (
			cat    Category
			source sql.NullInt64
		)
		if err := rows.Scan(&cat.ID, &cat.Slug, &cat.Title, &source); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].ID != cat.ID {
			out = append(out, cat)
		}
		if source.Valid {
			last := &out[len(out)-1]
			last.EntryIDs = append(last.EntryIDs, source.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime reads Craft's UTC datetime strings; unparseable values are zero.
func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
