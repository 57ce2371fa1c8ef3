package memory

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/harun/toolflow/pkg/vectorstore"
)

const (
	// DefaultChunkSize is the default chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the default number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 100
)

// TextSplitter cuts text into overlapping character windows.
type TextSplitter struct {
	chunkSize int
	overlap   int
}

// NewTextSplitter creates a splitter. The overlap must be smaller than the chunk size.
func NewTextSplitter(chunkSize, overlap int) (*TextSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &TextSplitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split cuts a text object into chunks carrying the source name and class.
// Windows end on whitespace when one falls in the second half of the window.
func (s *TextSplitter) Split(obj vectorstore.TextObject) []vectorstore.TextObject {
	runes := []rune(obj.Text)
	var chunks []vectorstore.TextObject

	for start := 0; start < len(runes); {
		end := start + s.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastSpace(runes, start+s.chunkSize/2, end); cut > 0 {
			end = cut
		}

		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			chunks = append(chunks, vectorstore.TextObject{
				Name:  obj.Name,
				Class: obj.Class,
				Text:  text,
			})
		}

		if end == len(runes) {
			break
		}

		next := end - s.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// SplitAll splits every object and concatenates the chunks in order.
func (s *TextSplitter) SplitAll(objs []vectorstore.TextObject) []vectorstore.TextObject {
	var out []vectorstore.TextObject
	for _, obj := range objs {
		out = append(out, s.Split(obj)...)
	}
	return out
}

// lastSpace returns the index just past the last whitespace in runes[from:to], or -1.
func lastSpace(runes []rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return -1
}
