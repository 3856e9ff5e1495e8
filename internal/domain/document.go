package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	HashIDLength         = 8
	MaxNameLength        = 200
	MaxDescriptionLength = 1000
	MaxTagLength         = 20
	MaxTags              = 10
)

var tagPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Document is one registry entry. Name and Description stay nil until the
// user (or the HTML title of a fresh download) sets them, which keeps the
// on-disk JSON compatible with registries written by older releases.
type Document struct {
	URL         string   `json:"url"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// HashID derives the registry key for a URL: the first 8 hex characters of
// its SHA-256 digest.
func HashID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:HashIDLength]
}

// ValidHashID reports whether id has the shape of a registry key.
func ValidHashID(id string) bool {
	if len(id) != HashIDLength {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func (d Document) GetName() string {
	if d.Name == nil {
		return ""
	}
	return *d.Name
}

func (d Document) GetDescription() string {
	if d.Description == nil {
		return ""
	}
	return *d.Description
}

func (d Document) HasTags() bool {
	return len(d.Tags) > 0
}

// CleanName trims, cuts to the length limit, and strips control characters.
// Returns nil when nothing useful remains.
func CleanName(raw string) *string {
	return cleanText(raw, MaxNameLength)
}

// CleanDescription applies the same treatment as CleanName with the longer
// description limit.
func CleanDescription(raw string) *string {
	return cleanText(raw, MaxDescriptionLength)
}

func cleanText(raw string, limit int) *string {
	text := strings.TrimSpace(raw)
	if len(text) > limit {
		text = text[:limit]
	}
	text = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)
	if text == "" {
		return nil
	}
	return &text
}

// CleanTags parses a comma-separated tag string. Tags are lowercased and
// trimmed; anything outside ^[a-z0-9-]{1,20}$ is dropped silently.
// Duplicates are removed keeping first occurrence, capped at MaxTags.
func CleanTags(input string) []string {
	if strings.TrimSpace(input) == "" {
		return []string{}
	}

	valid := make([]string, 0, MaxTags)
	seen := make(map[string]struct{})

	for _, raw := range strings.Split(input, ",") {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" || len(tag) > MaxTagLength || !tagPattern.MatchString(tag) {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		valid = append(valid, tag)
		if len(valid) == MaxTags {
			break
		}
	}

	return valid
}

// FilterByTags keeps documents carrying at least one of the wanted tags
// (OR logic). Selecting every tag currently in use matches the whole set,
// untagged documents included.
func FilterByTags(docs map[string]Document, wanted []string) map[string]Document {
	if len(wanted) == 0 {
		return map[string]Document{}
	}

	inUse := make(map[string]struct{})
	for _, doc := range docs {
		for _, tag := range doc.Tags {
			inUse[tag] = struct{}{}
		}
	}

	if len(wanted) == len(inUse) {
		all := true
		for _, tag := range wanted {
			if _, ok := inUse[tag]; !ok {
				all = false
				break
			}
		}
		if all {
			out := make(map[string]Document, len(docs))
			for id, doc := range docs {
				out[id] = doc
			}
			return out
		}
	}

	wantedSet := make(map[string]struct{}, len(wanted))
	for _, tag := range wanted {
		wantedSet[tag] = struct{}{}
	}

	filtered := make(map[string]Document)
	for id, doc := range docs {
		for _, tag := range doc.Tags {
			if _, ok := wantedSet[tag]; ok {
				filtered[id] = doc
				break
			}
		}
	}

	return filtered
}
