package retrieval

import (
	"fmt"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/calque-ai/go-chronorag/pkg/query"
)

// DefaultSeparator divides documents in the context string.
const DefaultSeparator = "\n\n---\n\n"

// ContextBuilder formats selected documents into the context string of the
// answer prompt.
type ContextBuilder struct {
	// Separator is placed between documents (DefaultSeparator when empty).
	Separator string
	// Headers prefixes each document with "[title] (YYYY-MM-DD)" when that
	// metadata is present.
	Headers bool
}

// Build joins the documents in order.
//
// Example:
//
//	ctxText := retrieval.ContextBuilder{Headers: true}.Build(docs)
func (b ContextBuilder) Build(docs []Document) string {
	sep := b.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if b.Headers {
			parts = append(parts, formatWithHeader(d))
			continue
		}
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, sep)
}

func formatWithHeader(d Document) string {
	var header []string
	if title, ok := d.Metadata[MetaTitle].(string); ok && strings.TrimSpace(title) != "" {
		header = append(header, "["+strings.TrimSpace(title)+"]")
	}
	if ts, ok := DateTS(d.Metadata); ok {
		header = append(header, "("+time.UnixMilli(ts).UTC().Format(query.DateLayout)+")")
	}
	if len(header) == 0 {
		return d.Content
	}
	return fmt.Sprintf("%s\n%s", strings.Join(header, " "), d.Content)
}

// Sources lists distinct source identifiers in first-seen order.
//
// Values are trimmed and compared case-sensitively; blank or missing sources
// are skipped.
func Sources(docs []Document) []string {
	seen := orderedmap.New[string, int]()
	for i, d := range docs {
		src, ok := d.Metadata[MetaSource].(string)
		if !ok {
			continue
		}
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if _, dup := seen.Get(src); dup {
			continue
		}
		seen.Set(src, i)
	}

	out := make([]string, 0, seen.Len())
	for pair := seen.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}
