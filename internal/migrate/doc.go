// Package migrate moves content from the legacy Craft CMS into Cosmic.
//
// The jobs are one-off batch runs started by hand from the CLI:
//
//   - episodes: copies legacy episode entries, converting bodies to markdown
//   - hosts: copies legacy host entries into regular-hosts
//   - genres: maps free-text legacy genre labels onto canonical Cosmic genres
//     with a keyword dictionary, falling back to bigram similarity
//   - images: links legacy assets to Cosmic episodes and hosts without artwork
//     by fuzzy matching titles against asset file names
//
// Each run takes a file lock in the data directory, is tagged with a uuid and
// records every outcome in the ledger so re-runs skip finished work. Dry runs
// read from both systems but write to neither; their report lists what would
// happen so a person can review it before the real run.
package migrate
