package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeywords = []string{"kemi", "REACH", "kloridit", "vaarallinen aine"}

func TestNormalizerMatches(t *testing.T) {
	n := NewNormalizer(testKeywords)

	assert.True(t, n.Matches("REACH Update on Chlorides"))
	assert.True(t, n.Matches("Asetus koskien kloridit-päästöjä"))
	assert.True(t, n.Matches("Kemian teollisuuden uudet vaatimukset"))
	assert.False(t, n.Matches("Road Traffic Speed Limits"))
	assert.False(t, n.Matches(""))
}

func TestNormalizeFiltersAndStrips(t *testing.T) {
	n := NewNormalizer(testKeywords)

	entries := []Entry{
		{
			Title:       "REACH Update on Chlorides",
			Link:        "https://finlex.fi/fi/laki/alkup/2023/20231042",
			Description: "<p>New limits for <b>kloridit</b> &amp; sulfates.</p>",
			Published:   time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			Title:       "Road Traffic Speed Limits",
			Link:        "https://finlex.fi/fi/laki/alkup/2023/20230917",
			Description: "Seasonal adjustments on national highways.",
		},
	}

	candidates := n.Normalize(entries)
	require.Len(t, candidates, 1)

	got := candidates[0]
	assert.Equal(t, "REACH Update on Chlorides", got.Title)
	assert.Equal(t, "New limits for kloridit & sulfates.", got.Description)
	assert.Equal(t, "20231042", got.ExternalID)
	assert.Equal(t, entries[0].Published, got.PublishedDate)
}

func TestNormalizeMatchesOnDescription(t *testing.T) {
	n := NewNormalizer(testKeywords)

	entries := []Entry{
		{
			Title:       "Announcement 417/2023",
			Link:        "https://finlex.fi/fi/laki/alkup/2023/20230417",
			Description: "Amendment concerning kloridit discharge reporting.",
		},
	}

	candidates := n.Normalize(entries)
	require.Len(t, candidates, 1)
}

func TestNormalizePrefersGUIDForExternalID(t *testing.T) {
	n := NewNormalizer([]string{"reach"})

	entries := []Entry{
		{
			Title: "REACH annex change",
			Link:  "https://finlex.fi/some/path",
			GUID:  "https://finlex.fi/fi/laki/alkup/2024/20240005",
		},
	}

	candidates := n.Normalize(entries)
	require.Len(t, candidates, 1)
	assert.Equal(t, "20240005", candidates[0].ExternalID)
}

func TestDeriveExternalID(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{
			name: "eight digit run",
			link: "https://finlex.fi/fi/laki/alkup/2023/20231042",
			want: "20231042",
		},
		{
			name: "shorter digit runs fall through to stripped form",
			link: "https://finlex.fi/laki/abc-123",
			want: "httpsfinlexfilakiabc123",
		},
		{
			name: "stripped form truncated to fifty chars",
			link: "https://finlex.fi/fi/laki/ajantasa/some/very/long/path/segment/keeps/going",
			want: "httpsfinlexfifilakiajantasasomeverylongpathsegment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveExternalID(tt.link))
			assert.LessOrEqual(t, len(DeriveExternalID(tt.link)), 50)
		})
	}
}

func TestDeriveExternalIDHashFallback(t *testing.T) {
	// No digits and no alphanumerics at all forces the encoded fallback.
	id := DeriveExternalID("///---///")
	require.NotEmpty(t, id)
	assert.LessOrEqual(t, len(id), 50)

	// Deterministic for the same input.
	assert.Equal(t, id, DeriveExternalID("///---///"))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello & goodbye", StripHTML("<div><p>Hello</p> &amp; goodbye</div>"))
	assert.Equal(t, `say "hi"`, StripHTML("say &quot;hi&quot;"))
	assert.Equal(t, "plain text", StripHTML("  plain text  "))
	assert.Equal(t, "", StripHTML(""))
}
