package ingest

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Chunker splits extracted text into bounded, overlapping windows. Splits
// prefer paragraph, then sentence, then word boundaries. Headings found in
// the text become a context prefix carried on every chunk they govern.
type Chunker struct {
	Size    int
	Overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Chunker{Size: size, Overlap: overlap}
}

type section struct {
	heading string
	text    string
}

// ChunkUnit chunks one source unit. Every chunk is prefixed with
// "Context: <nearest heading | docTitle> (Page N)".
func (c *Chunker) ChunkUnit(docTitle string, unit SourceUnit) []ChunkedText {
	var out []ChunkedText
	for _, sec := range splitSections(unit.Text) {
		context := sec.heading
		if context == "" {
			context = docTitle
		}
		prefix := fmt.Sprintf("Context: %s (Page %d)", context, unit.Index)
		for _, piece := range c.split(sec.text) {
			out = append(out, ChunkedText{
				Content: prefix + "\n\n" + piece,
				Page:    unit.Index,
				Heading: sec.heading,
			})
		}
	}
	return out
}

type ChunkedText struct {
	Content string
	Page    int
	Heading string
}

// splitSections walks the text as markdown, grouping block text under the
// nearest level-1/2 heading.
func splitSections(input string) []section {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	md := goldmark.New()
	source := []byte(input)
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var sections []section
	var heading string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		sections = append(sections, section{heading: heading, text: strings.Join(current, "\n\n")})
		current = nil
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok && h.Level <= 2 {
			flush()
			heading = string(h.Text(source))
			continue
		}
		txt := blockText(node, source)
		if txt != "" {
			current = append(current, txt)
		}
	}
	flush()
	if len(sections) == 0 {
		return []section{{text: input}}
	}
	return sections
}

func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// split cuts text into pieces of at most Size characters with Overlap
// characters carried between consecutive pieces.
func (c *Chunker) split(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if len(input) <= c.Size {
		return []string{input}
	}

	var pieces []string
	var current string
	for _, fragment := range fragments(input, c.Size) {
		if current == "" {
			current = fragment
			continue
		}
		if len(current)+1+len(fragment) <= c.Size {
			current = current + " " + fragment
			continue
		}
		pieces = append(pieces, current)
		current = c.tail(current) + " " + fragment
		if len(current) > c.Size {
			current = fragment
		}
	}
	if strings.TrimSpace(current) != "" {
		pieces = append(pieces, current)
	}
	return pieces
}

// fragments breaks text into units no larger than max, preferring paragraph
// boundaries, then sentences, then words.
func fragments(input string, max int) []string {
	var out []string
	for _, para := range strings.Split(input, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= max {
			out = append(out, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			if len(sentence) <= max {
				out = append(out, sentence)
				continue
			}
			out = append(out, splitWords(sentence, max)...)
		}
	}
	return out
}

func splitSentences(input string) []string {
	var sentences []string
	var sb strings.Builder
	runes := []rune(input)
	for i, r := range runes {
		sb.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n') {
			if s := strings.TrimSpace(sb.String()); s != "" {
				sentences = append(sentences, s)
			}
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func splitWords(input string, max int) []string {
	words := strings.Fields(input)
	var out []string
	var sb strings.Builder
	for _, word := range words {
		if sb.Len() > 0 && sb.Len()+1+len(word) > max {
			out = append(out, sb.String())
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		if len(word) > max {
			// Pathological token longer than a whole chunk; hard cut.
			for len(word) > max {
				out = append(out, word[:max])
				word = word[max:]
			}
		}
		sb.WriteString(word)
	}
	if sb.Len() > 0 {
		out = append(out, sb.String())
	}
	return out
}

// tail returns the last Overlap characters of piece, starting at a word
// boundary.
func (c *Chunker) tail(piece string) string {
	if len(piece) <= c.Overlap {
		return piece
	}
	cut := piece[len(piece)-c.Overlap:]
	if idx := strings.IndexByte(cut, ' '); idx >= 0 && idx+1 < len(cut) {
		cut = cut[idx+1:]
	}
	return cut
}
