package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Prefixes news sites prepend to otherwise identical headlines
var titlePrefixes = []string{
	"breaking:", "update:", "news:", "exclusive:", "alert:",
	"analysis:", "opinion:", "editorial:", "report:",
}

var foldCaser = cases.Fold()

// NormalizeTitle lowercases, unicode-normalizes and strips known
// headline prefixes so the same story fingerprints identically
// regardless of which source carried it.
func NormalizeTitle(title string) string {
	s := norm.NFKC.String(title)
	s = foldCaser.String(s)
	s = strings.Join(strings.Fields(s), " ")

	for _, prefix := range titlePrefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
			break
		}
	}

	return s
}

// Fingerprint derives the dedup identity of an article from its
// normalized title and URL
func Fingerprint(title, url string) string {
	content := NormalizeTitle(title) + "|" + url

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
