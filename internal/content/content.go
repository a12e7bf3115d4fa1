// Package content splits uploaded documents into chunks sized for card
// generation. Markdown is split on heading and paragraph boundaries with
// image references tracked per chunk; PDFs are batched by page range for
// providers with native PDF support, or segmented from extracted text
// otherwise.
package content

import (
	"context"
	"strings"
)

// Chunk is a generation-sized slice of a document. Index is the zero-based
// position of the chunk within the document; Images lists the image
// references that appear in the chunk's text.
type Chunk struct {
	Index  int
	Text   string
	Images []ChunkImage
}

// ChunkImage is an image referenced from document text.
type ChunkImage struct {
	// Alt is the alt text from the markdown reference.
	Alt string
	// RelPath is the path as written in the document, URL-decoded.
	RelPath string
	// AbsPath is RelPath resolved against the document's directory.
	AbsPath string
	// Exists reports whether the file was present at parse time.
	Exists bool
}

// Extractor produces plain text from a PDF on disk. It is the fallback path
// for providers without native PDF support.
type Extractor interface {
	// ExtractText returns the full text content of the PDF at path.
	ExtractText(ctx context.Context, path string) (string, error)
	// PageCount returns the number of pages in the PDF at path.
	PageCount(ctx context.Context, path string) (int, error)
}

// SegmentText splits extracted plain text into chunks on paragraph
// boundaries, packing paragraphs up to chunkSize characters per chunk.
// Empty input yields no chunks.
func SegmentText(text string, chunkSize int) []Chunk {
	if text == "" {
		return nil
	}

	var pieces []string
	current := ""

	for _, para := range strings.Split(text, "\n\n") {
		if len(current)+len(para) <= chunkSize {
			current += para + "\n\n"
		} else {
			if current != "" {
				pieces = append(pieces, strings.TrimSpace(current))
			}
			current = para + "\n\n"
		}
	}
	if current != "" {
		pieces = append(pieces, strings.TrimSpace(current))
	}

	chunks := make([]Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, Chunk{Index: i, Text: text})
	}
	return chunks
}
