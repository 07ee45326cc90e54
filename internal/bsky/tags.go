package bsky

import "strings"

// AppendTag appends suffix to text and returns the composed text together
// with the annotation covering the hashtag inside suffix.
//
// suffix is expected to contain exactly one "#word" (e.g. "\n#NBA").
// Offsets are byte offsets in the composed string, which is what the
// richtext facet lexicon uses.
func AppendTag(text, suffix string) (string, *Tag) {
	out := text + suffix
	i := strings.IndexByte(suffix, '#')
	if i < 0 {
		return out, nil
	}
	word := suffix[i+1:]
	if j := strings.IndexAny(word, " \t\r\n"); j >= 0 {
		word = word[:j]
	}
	if word == "" {
		return out, nil
	}
	start := len(text) + i
	return out, &Tag{
		Tag:       word,
		ByteStart: start,
		ByteEnd:   start + 1 + len(word),
	}
}
