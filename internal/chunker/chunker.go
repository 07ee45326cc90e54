// Package chunker splits post text into pieces that fit the per-post budget.
//
// Lengths are measured in grapheme clusters (user-perceived characters), the
// same unit Bluesky uses for its 300 character limit. A chunk never splits a
// line (Split) or a list item (SplitItems); a single unit longer than the
// whole budget is emitted verbatim and reported by Oversized.
package chunker

import (
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

// MaxPostLength is Bluesky's per-post limit in graphemes.
const MaxPostLength = 300

// Options controls a split.
//
// Reserved is the room kept free for text added around the chunk later
// (a thread prefix, a trailing hashtag). Boundary, when set, is a marker that
// starts a logical record; Split prefers to cut right before it.
type Options struct {
	MaxLength int
	Reserved  int
	Boundary  string
}

// Budget is the number of graphemes a chunk may use.
func (o Options) Budget() int {
	maxLen := o.MaxLength
	if maxLen <= 0 {
		maxLen = MaxPostLength
	}
	b := maxLen - o.Reserved
	if b < 1 {
		return 1
	}
	return b
}

// Length returns the display length of s in grapheme clusters.
func Length(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// Split breaks text into chunks on line boundaries.
func Split(text string, opt Options) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	budget := opt.Budget()
	if Length(trimmed) <= budget {
		return []string{trimmed}
	}
	p := packer{budget: budget, boundary: opt.Boundary}
	for _, line := range strings.Split(text, "\n") {
		p.add(line)
	}
	return p.finish()
}

// SplitItems packs whole list items into chunks, joining items with "\n".
// An item is never divided between two chunks, so Boundary is not consulted.
func SplitItems(items []string, opt Options) []string {
	p := packer{budget: opt.Budget()}
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			continue
		}
		p.add(it)
	}
	return p.finish()
}

// Oversized returns the indexes of chunks longer than the budget.
func Oversized(chunks []string, opt Options) []int {
	budget := opt.Budget()
	var out []int
	for i, c := range chunks {
		if Length(c) > budget {
			out = append(out, i)
		}
	}
	return out
}

// Halves splits items into two runs, the first one taking the extra item
// when the count is odd.
func Halves(items []string) (first, second []string) {
	half := (len(items) + 1) / 2
	return items[:half], items[half:]
}

// Numbered renders items as a ranking ("1. Boston Celtics"), starting at start.
func Numbered(items []string, start int) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strconv.Itoa(start+i) + ". " + it
	}
	return out
}

// packer accumulates units into a running chunk.
type packer struct {
	budget   int
	boundary string

	buf    string
	hasBuf bool
	out    []string
}

func (p *packer) add(unit string) {
	if !p.hasBuf {
		p.start(unit)
		return
	}
	joined := p.buf + "\n" + unit
	if Length(strings.TrimSpace(joined)) <= p.budget {
		p.buf = joined
		return
	}
	if p.cutAtBoundary(joined) {
		return
	}
	p.emit(p.buf)
	p.start(unit)
}

// start opens a new chunk with unit. A unit that cannot fit on its own is
// flushed immediately as an overflow chunk.
func (p *packer) start(unit string) {
	p.buf, p.hasBuf = unit, true
	if Length(strings.TrimSpace(unit)) > p.budget {
		p.emit(unit)
		p.buf, p.hasBuf = "", false
	}
}

// cutAtBoundary closes the chunk at the last boundary marker that lies after
// the chunk start and no later than the pending unit. The text from the marker
// on moves to the next chunk, provided it fits there. A marker with nothing
// after it closes a record rather than opening one, so it is not a cut point.
func (p *packer) cutAtBoundary(joined string) bool {
	if p.boundary == "" {
		return false
	}
	end := len(p.buf) + len(p.boundary)
	if end > len(joined) {
		end = len(joined)
	}
	marker := strings.TrimSpace(p.boundary)
	for {
		idx := strings.LastIndex(joined[:end], p.boundary)
		if idx <= 0 || idx > len(p.buf) {
			return false
		}
		head, rest := joined[:idx], joined[idx:]
		if strings.TrimSpace(rest) == marker {
			end = idx + len(p.boundary) - 1
			continue
		}
		if strings.TrimSpace(head) == "" || Length(strings.TrimSpace(rest)) > p.budget {
			return false
		}
		p.emit(head)
		p.buf, p.hasBuf = rest, true
		return true
	}
}

func (p *packer) emit(s string) {
	if s = strings.TrimSpace(s); s != "" {
		p.out = append(p.out, s)
	}
}

func (p *packer) finish() []string {
	if p.hasBuf {
		p.emit(p.buf)
		p.buf, p.hasBuf = "", false
	}
	return p.out
}
