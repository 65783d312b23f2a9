package testsupport

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// legacyFixtureSQL is a trimmed Craft schema with one of each record the
// migration jobs read.
const legacyFixtureSQL = `
CREATE TABLE craft_sections (id INTEGER PRIMARY KEY, handle TEXT);
CREATE TABLE craft_elements (id INTEGER PRIMARY KEY, enabled INTEGER, dateDeleted TEXT);
CREATE TABLE craft_elements_sites (elementId INTEGER, slug TEXT);
CREATE TABLE craft_entries (id INTEGER PRIMARY KEY, sectionId INTEGER, postDate TEXT);
CREATE TABLE craft_content (elementId INTEGER, title TEXT, field_body TEXT, field_broadcastDate TEXT,
  field_tracklist TEXT, field_mixcloudUrl TEXT, field_genres TEXT);
CREATE TABLE craft_volumefolders (id INTEGER PRIMARY KEY, path TEXT);
CREATE TABLE craft_assets (id INTEGER PRIMARY KEY, folderId INTEGER, filename TEXT);
CREATE TABLE craft_relations (id INTEGER PRIMARY KEY, sourceId INTEGER, targetId INTEGER, sortOrder INTEGER);
CREATE TABLE craft_categorygroups (id INTEGER PRIMARY KEY, handle TEXT);
CREATE TABLE craft_categories (id INTEGER PRIMARY KEY, groupId INTEGER);

INSERT INTO craft_sections VALUES (1, 'episodes'), (2, 'hosts');
INSERT INTO craft_categorygroups VALUES (1, 'genres');
INSERT INTO craft_volumefolders VALUES (1, 'episodes/');

INSERT INTO craft_elements VALUES (10, 1, NULL), (11, 1, '2020-01-01 00:00:00'), (12, 0, NULL),
  (20, 1, NULL), (30, 1, NULL), (31, 1, NULL), (40, 1, NULL), (41, 1, NULL);
INSERT INTO craft_elements_sites VALUES (10, 'lunch-session-2019'), (11, 'deleted'), (12, 'draft'),
  (20, 'gilles-peterson'), (40, 'jazz-funk'), (41, 'unused');
INSERT INTO craft_entries VALUES (10, 1, '2019-05-01 09:30:00'), (11, 1, '2019-05-02 09:30:00'),
  (12, 1, '2019-05-03 09:30:00'), (20, 2, '2018-01-01 00:00:00');
INSERT INTO craft_content VALUES
  (10, 'Lunch Session', '<p>Hello <img src="/uploads/lunch_session.jpg"></p>', '2019-05-01 13:00:00',
   'Artist - Track', 'https://www.mixcloud.com/worldwidefm/lunch-session/', 'Jazz, Brazilian'),
  (11, 'Deleted Show', '', NULL, NULL, NULL, NULL),
  (12, 'Draft Show', '', NULL, NULL, NULL, NULL),
  (20, 'Gilles Peterson', '<p>Founder of the station.</p>', NULL, NULL, NULL, NULL),
  (30, 'Lunch Session', NULL, NULL, NULL, NULL, NULL),
  (40, 'Jazz-Funk', NULL, NULL, NULL, NULL, NULL),
  (41, 'Unused', NULL, NULL, NULL, NULL, NULL);
INSERT INTO craft_assets VALUES (30, 1, 'lunch_session.jpg'), (31, NULL, 'gilles.png');
INSERT INTO craft_relations VALUES (1, 10, 30, 1), (2, 10, 20, 1), (3, 10, 40, 1);
`

// WriteLegacyFixture creates a SQLite Craft database at path holding:
//   - episode 10 "Lunch Session" (live), 11 (deleted) and 12 (disabled)
//   - host 20 "Gilles Peterson", related to episode 10
//   - assets 30 lunch_session.jpg (related to 10) and 31 gilles.png
//   - genre categories 40 "Jazz-Funk" (related to 10) and 41 "Unused"
func WriteLegacyFixture(t testing.TB, path string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy fixture: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(context.Background(), legacyFixtureSQL); err != nil {
		t.Fatalf("write legacy fixture: %v", err)
	}
}
