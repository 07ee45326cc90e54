package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitEmpty(t *testing.T) {
	require.Nil(t, Split("", Options{MaxLength: 300}))
	require.Nil(t, Split(" \n\t ", Options{MaxLength: 300}))
	require.Nil(t, SplitItems(nil, Options{MaxLength: 300}))
}

func TestSplitShortTextIsSingleTrimmedChunk(t *testing.T) {
	got := Split("  Celtics vs. Heat @ 19:30\n", Options{MaxLength: 300, Reserved: 28})
	require.Equal(t, []string{"Celtics vs. Heat @ 19:30"}, got)
}

func TestSplitRespectsBudgetAndKeepsLines(t *testing.T) {
	lines := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("x", 9)+string(rune('a'+i%26)))
	}
	text := strings.Join(lines, "\n")
	opt := Options{MaxLength: 60, Reserved: 6}

	chunks := Split(text, opt)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, Length(c)+opt.Reserved, opt.MaxLength, "chunk %q", c)
		require.NotEmpty(t, c)
	}
	require.Equal(t, text, strings.Join(chunks, "\n"))
}

func TestSplitCountsGraphemesNotBytes(t *testing.T) {
	// Each line is 5 graphemes but far more bytes (flags and combining marks).
	line := "🇫🇷🇧🇪é👍🏽a"
	require.Equal(t, 5, Length(line))
	text := strings.Repeat(line+"\n", 4)

	chunks := Split(text, Options{MaxLength: 11})
	require.Equal(t, []string{line + "\n" + line, line + "\n" + line}, chunks)
}

func TestSplitPrefersBoundaryMarker(t *testing.T) {
	records := []string{
		"--Boston Celtics:112\nMiami Heat:104\n--",
		"--Denver Nuggets:99\nLos Angeles Lakers:101\n--",
		"--Golden State Warriors:120\nPhoenix Suns:118\n--",
	}
	text := strings.Join(records, "\n")
	opt := Options{MaxLength: 80, Boundary: "\n--"}

	chunks := Split(text, opt)
	require.Equal(t, records, chunks)
}

func TestSplitBoundaryCutMovesPartialRecord(t *testing.T) {
	// Budget forces a close after "--C:3"; the open record moves along.
	text := "--A:1\nB:2\n--\n--C:3\nD:4\n--"
	opt := Options{MaxLength: 20, Boundary: "\n--"}

	chunks := Split(text, opt)
	require.Equal(t, []string{"--A:1\nB:2\n--", "--C:3\nD:4\n--"}, chunks)
}

func TestSplitBoundaryKeepsClosingMarker(t *testing.T) {
	// The overflow happens on the closing "--" of the second record.
	text := "--A:1\nB:2\n--\n--C:3\nD:4\n--"
	opt := Options{MaxLength: 24, Boundary: "\n--"}

	chunks := Split(text, opt)
	require.Equal(t, []string{"--A:1\nB:2\n--", "--C:3\nD:4\n--"}, chunks)
}

func TestSplitOversizedUnitIsKeptVerbatim(t *testing.T) {
	long := strings.Repeat("y", 50)
	text := "short one\n" + long + "\nshort two"
	opt := Options{MaxLength: 20}

	chunks := Split(text, opt)
	require.Equal(t, []string{"short one", long, "short two"}, chunks)
	require.Equal(t, []int{1}, Oversized(chunks, opt))
}

func TestSplitItemsNeverSeversItem(t *testing.T) {
	items := []string{
		"--Boston Celtics:112\nMiami Heat:104\n--",
		"--Denver Nuggets:99\nLos Angeles Lakers:101\n--",
		"",
		"--Golden State Warriors:120\nPhoenix Suns:118\n--",
	}
	opt := Options{MaxLength: 100}

	chunks := SplitItems(items, opt)
	require.Equal(t, []string{items[0] + "\n" + items[1], items[3]}, chunks)
	require.Empty(t, Oversized(chunks, opt))
}

func TestBudget(t *testing.T) {
	require.Equal(t, 300, Options{}.Budget())
	require.Equal(t, 272, Options{MaxLength: 300, Reserved: 28}.Budget())
	require.Equal(t, 1, Options{MaxLength: 10, Reserved: 30}.Budget())
}

func TestHalvesAndNumbered(t *testing.T) {
	ranked := Numbered([]string{"TeamA", "TeamB", "TeamC", "TeamD", "TeamE"}, 1)
	require.Equal(t, "1. TeamA", ranked[0])

	first, second := Halves(ranked)
	require.Equal(t, []string{"1. TeamA", "2. TeamB", "3. TeamC"}, first)
	require.Equal(t, []string{"4. TeamD", "5. TeamE"}, second)

	first, second = Halves(nil)
	require.Empty(t, first)
	require.Empty(t, second)
}
