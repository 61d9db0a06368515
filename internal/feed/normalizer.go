package feed

import (
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"regwatch/internal/domain"
)

var digitRunExpr = regexp.MustCompile(`\d{8}`)

var alnumExpr = regexp.MustCompile(`[^a-zA-Z0-9]`)

const externalIDMaxLen = 50

// Entry is a raw feed item before filtering and normalization.
type Entry struct {
	Title       string
	Link        string
	GUID        string
	Published   time.Time
	Description string
}

// Normalizer filters raw entries by keyword and turns matches into
// regulation candidates. It performs no I/O.
type Normalizer struct {
	keywords []string
}

// NewNormalizer lowercases the keyword set once up front.
func NewNormalizer(keywords []string) *Normalizer {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Normalizer{keywords: lowered}
}

// Normalize keeps entries matching any keyword and converts them to
// candidates, preserving input order.
func (n *Normalizer) Normalize(entries []Entry) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(entries))
	for _, entry := range entries {
		if !n.Matches(entry.Title + " " + entry.Description) {
			continue
		}

		published := entry.Published
		if published.IsZero() {
			published = time.Now().UTC()
		}

		idSource := entry.GUID
		if idSource == "" {
			idSource = entry.Link
		}
		if idSource == "" {
			idSource = entry.Title
		}

		candidates = append(candidates, domain.Candidate{
			Title:         entry.Title,
			Description:   StripHTML(entry.Description),
			SourceURL:     entry.Link,
			PublishedDate: published,
			ExternalID:    DeriveExternalID(idSource),
		})
	}
	return candidates
}

// Matches reports whether any configured keyword occurs in the text,
// case-insensitive substring semantics.
func (n *Normalizer) Matches(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range n.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// DeriveExternalID extracts a stable identifier from a source URL: the
// first run of 8 consecutive digits if present, then an
// alphanumeric-stripped truncation, and finally a base64 encoding when
// both produce empty output.
func DeriveExternalID(link string) string {
	if match := digitRunExpr.FindString(link); match != "" {
		return match
	}

	stripped := alnumExpr.ReplaceAllString(link, "")
	if stripped != "" {
		return truncate(stripped, externalIDMaxLen)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(link))
	return truncate(encoded, externalIDMaxLen)
}

// StripHTML drops markup from a description and decodes the handful of
// entities feeds actually emit.
func StripHTML(raw string) string {
	text := raw
	if strings.ContainsAny(raw, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			text = doc.Text()
		}
	}

	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	return strings.TrimSpace(replacer.Replace(text))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
