package vectorstore

import "strings"

// maxCollectionNameLen bounds the total collection name length.
const maxCollectionNameLen = 64

// SanitizeCollectionName builds a collection name from a source title and a
// content type. Runs of characters outside [A-Za-z0-9] collapse to a single
// underscore, leading/trailing underscores are stripped, and the title
// portion is truncated so the full name fits in maxCollectionNameLen with
// the "_{contentType}" suffix always intact. A title with no usable
// characters falls back to the stem "source".
func SanitizeCollectionName(title, contentType string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range title {
		alnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}

	name := b.String()
	if name == "" {
		name = "source"
	}
	suffix := "_" + contentType
	if maxTitle := maxCollectionNameLen - len(suffix); len(name) > maxTitle {
		name = strings.TrimRight(name[:maxTitle], "_")
	}
	return name + suffix
}
