package textutil

import (
	"path"
	"strings"
)

// MediaFileName turns a legacy asset name into a clean upload name: the base
// name with a slugified stem and a lowercase extension
// ("uploads/Gilles Peterson: Live.JPG" -> "gilles-peterson-live.jpg").
// It returns "" when nothing usable remains of the stem.
func MediaFileName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	ext := path.Ext(base)
	stem := Slugify(strings.TrimSuffix(base, ext))
	if stem == "" {
		return ""
	}
	ext = strings.ToLower(ext)
	if ext == "." || strings.ContainsAny(ext, " :?*\"<>|") {
		ext = ""
	}
	return stem + ext
}

// AssetStem returns the human part of an asset file name: the base name
// without extension, with separators turned into spaces
// ("uploads/Gilles_Peterson-2019.JPG" -> "Gilles Peterson 2019").
func AssetStem(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.Join(strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' ' || r == '+'
	}), " ")
}
