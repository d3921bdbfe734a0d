package services

import (
	"fmt"
	"strings"

	"github.com/pocketbase/pocketbase/core"
)

// AreaIndex maps normalized area titles to area record ids. It is built
// once per batch from all configured areas; per-row resolution is then pure
// map probing. Building it per row would turn a thousand-row batch into a
// thousand full geography scans.
type AreaIndex struct {
	byTitle map[string]string
}

// NewAreaIndex loads every configured area into the index.
func NewAreaIndex(app core.App) (*AreaIndex, error) {
	records, err := app.FindRecordsByFilter("areas", "id != ''", "", 0, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("load areas: %w", err)
	}
	byTitle := make(map[string]string, len(records))
	for _, r := range records {
		title := normalizeSegment(r.GetString("title"))
		if title != "" {
			byTitle[title] = r.Id
		}
	}
	return &AreaIndex{byTitle: byTitle}, nil
}

// NewAreaIndexFromTitles builds an index from a title -> id map directly.
func NewAreaIndexFromTitles(titles map[string]string) *AreaIndex {
	byTitle := make(map[string]string, len(titles))
	for title, id := range titles {
		if norm := normalizeSegment(title); norm != "" {
			byTitle[norm] = id
		}
	}
	return &AreaIndex{byTitle: byTitle}
}

// Resolve best-effort matches a free-text address onto an area id. The
// address is split on commas, each segment normalized, and every contiguous
// run of segments tried as a candidate phrase, longest first; the first hit
// wins. "" means no match; sub-area is enrichment, not a validation gate.
func (ix *AreaIndex) Resolve(address string) string {
	if ix == nil || len(ix.byTitle) == 0 {
		return ""
	}

	var segments []string
	for _, part := range strings.Split(address, ",") {
		if seg := normalizeSegment(part); seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return ""
	}

	for length := len(segments); length >= 1; length-- {
		for start := 0; start+length <= len(segments); start++ {
			phrase := strings.Join(segments[start:start+length], " ")
			if id, ok := ix.byTitle[phrase]; ok {
				return id
			}
		}
	}
	return ""
}

// normalizeSegment lowercases, strips punctuation and collapses whitespace.
func normalizeSegment(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
