package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkerSmallTextSinglePiece(t *testing.T) {
	c := NewChunker(1000, 200)
	pieces := c.split("photosynthesis converts light into chemical energy.")
	require.Len(t, pieces, 1)
}

func TestChunkerRespectsSizeLimit(t *testing.T) {
	c := NewChunker(100, 20)
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("the quick brown fox jumps over the lazy dog. ")
	}
	pieces := c.split(sb.String())
	require.Greater(t, len(pieces), 1)
	for i, piece := range pieces {
		require.LessOrEqual(t, len(piece), 100, "piece %d exceeds limit", i)
		require.NotEmpty(t, strings.TrimSpace(piece))
	}
}

func TestChunkerOverlapCarriesText(t *testing.T) {
	c := NewChunker(100, 40)
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("alpha beta gamma delta epsilon. ")
	}
	pieces := c.split(sb.String())
	require.Greater(t, len(pieces), 1)
	// Each successor starts with the tail of its predecessor.
	tail := c.tail(pieces[0])
	require.True(t, strings.HasPrefix(pieces[1], tail))
}

func TestChunkerPrefersParagraphBoundaries(t *testing.T) {
	c := NewChunker(60, 10)
	input := "first paragraph here.\n\nsecond paragraph here.\n\nthird paragraph here."
	pieces := c.split(input)
	for _, piece := range pieces {
		require.NotContains(t, piece, "\n\n")
	}
}

func TestChunkerLongWordHardCut(t *testing.T) {
	c := NewChunker(50, 10)
	input := strings.Repeat("x", 180)
	pieces := c.split(input)
	require.GreaterOrEqual(t, len(pieces), 3)
	for _, piece := range pieces {
		require.LessOrEqual(t, len(piece), 50)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "three sentences", input: "One. Two! Three?", want: 3},
		{name: "decimal not split", input: "Pi is 3.14 roughly. Next.", want: 2},
		{name: "no terminator", input: "unterminated fragment", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, splitSentences(tt.input), tt.want)
		})
	}
}

func TestChunkUnitAddsContextPrefix(t *testing.T) {
	c := NewChunker(1000, 200)
	unit := SourceUnit{Index: 3, Text: "Mitochondria are the powerhouse of the cell."}
	chunks := c.ChunkUnit("biology.pdf", unit)
	require.Len(t, chunks, 1)
	require.True(t, strings.HasPrefix(chunks[0].Content, "Context: biology.pdf (Page 3)"))
	require.Contains(t, chunks[0].Content, "powerhouse")
}

func TestChunkUnitHeadingSections(t *testing.T) {
	c := NewChunker(1000, 200)
	unit := SourceUnit{Index: 1, Text: "# Cell Structure\n\nCells have membranes.\n\n# Energy\n\nATP stores energy."}
	chunks := c.ChunkUnit("notes.md", unit)
	require.Len(t, chunks, 2)
	require.Contains(t, chunks[0].Content, "Context: Cell Structure (Page 1)")
	require.Contains(t, chunks[1].Content, "Context: Energy (Page 1)")
	require.Equal(t, "Cell Structure", chunks[0].Heading)
}

func TestChunkUnitDiscardsEmpty(t *testing.T) {
	c := NewChunker(1000, 200)
	require.Empty(t, c.ChunkUnit("empty.pdf", SourceUnit{Index: 1, Text: "   \n\n  "}))
}
