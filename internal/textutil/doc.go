// Package textutil provides text normalization and fuzzy matching used by the
// site (slugs) and the legacy migration heuristics.
//
// The primary use cases are:
//   - Normalizing labels (diacritic folding, lowercasing, punctuation collapse)
//   - Bigram (Sørensen–Dice) similarity for matching titles to asset names
//   - Term counts and cosine similarity for keyword scoring
//   - Clean upload names for migrated media
package textutil
