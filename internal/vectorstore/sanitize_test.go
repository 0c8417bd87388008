package vectorstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeCollectionName(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		contentType string
		want        string
	}{
		{"special characters", "Network & Security!", "code", "Network_Security_code"},
		{"plain title", "Handbook", "documents", "Handbook_documents"},
		{"unicode stripped", "Café Müller", "media", "Caf_M_ller_media"},
		{"repeated separators", "a  --  b", "code", "a_b_code"},
		{"leading trailing junk", "  !wiki! ", "documents", "wiki_documents"},
		{"digits kept", "v2 API docs", "documents", "v2_API_docs_documents"},
		{"empty title", "", "code", "source_code"},
		{"all special title", "!!! --- ???", "documents", "source_documents"},
		{"non-latin title", "日本語", "media", "source_media"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeCollectionName(tt.title, tt.contentType))
		})
	}
}

func TestSanitizeCollectionName_TruncatesLongTitle(t *testing.T) {
	long := strings.Repeat("VeryLongTitle", 20)

	got := SanitizeCollectionName(long, "documents")
	assert.LessOrEqual(t, len(got), maxCollectionNameLen)
	assert.True(t, strings.HasSuffix(got, "_documents"), "suffix must survive truncation: %s", got)
}

func TestSanitizeCollectionName_TruncationDropsTrailingUnderscore(t *testing.T) {
	// Title that would leave a separator right at the cut point.
	title := strings.Repeat("abcd ", 20)

	got := SanitizeCollectionName(title, "code")
	assert.LessOrEqual(t, len(got), maxCollectionNameLen)
	assert.NotContains(t, got, "__")
	assert.True(t, strings.HasSuffix(got, "_code"))
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, "_code"), "_"))
}
