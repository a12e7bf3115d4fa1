package content

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// imagePattern matches markdown image syntax: ![alt](path).
var imagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

// headingPattern splits content ahead of top-level and second-level headings
// so each heading stays attached to its section.
var headingPattern = regexp.MustCompile(`(?m)^#{1,2}\s`)

// titlePattern captures the first H1 heading.
var titlePattern = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// MarkdownDocument is a parsed markdown file with its image references
// resolved against the file's directory.
type MarkdownDocument struct {
	Content string
	Title   string
	Images  []ChunkImage
	BaseDir string
}

// ParseMarkdown reads and parses the markdown file at path. The title is
// taken from the first H1 heading if present. Image references are
// URL-decoded, deduplicated by relative path, and resolved relative to the
// file's directory.
func ParseMarkdown(path string) (*MarkdownDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading markdown file: %w", err)
	}

	content := string(raw)
	baseDir := filepath.Dir(path)

	return &MarkdownDocument{
		Content: content,
		Title:   extractTitle(content),
		Images:  extractImages(content, baseDir),
		BaseDir: baseDir,
	}, nil
}

func extractTitle(content string) string {
	match := titlePattern.FindStringSubmatch(content)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func extractImages(content, baseDir string) []ChunkImage {
	var images []ChunkImage
	seen := make(map[string]bool)

	for _, match := range imagePattern.FindAllStringSubmatch(content, -1) {
		relPath := decodePath(match[2])
		if seen[relPath] {
			continue
		}
		seen[relPath] = true

		absPath := filepath.Join(baseDir, relPath)
		_, statErr := os.Stat(absPath)

		images = append(images, ChunkImage{
			Alt:     match[1],
			RelPath: relPath,
			AbsPath: absPath,
			Exists:  statErr == nil,
		})
	}

	return images
}

// decodePath URL-decodes a markdown link target, falling back to the raw
// value when it is not valid percent-encoding.
func decodePath(p string) string {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	return decoded
}

// ChunkMarkdown splits markdown content into chunks of at most chunkSize
// characters, preferring heading boundaries and falling back to paragraph
// boundaries for oversized sections. Each chunk carries only the images
// whose references appear in its text; images that do not exist on disk are
// dropped.
func ChunkMarkdown(content string, images []ChunkImage, chunkSize int) []Chunk {
	var sections []string
	for _, s := range splitBeforeHeadings(content) {
		if strings.TrimSpace(s) != "" {
			sections = append(sections, s)
		}
	}

	var pieces []string
	current := ""

	for _, section := range sections {
		if len(current)+len(section) <= chunkSize {
			current += section
			continue
		}
		if strings.TrimSpace(current) != "" {
			pieces = append(pieces, current)
		}
		if len(section) > chunkSize {
			current = ""
			for _, para := range strings.Split(section, "\n\n") {
				if len(current)+len(para)+2 <= chunkSize {
					current += para + "\n\n"
				} else {
					if strings.TrimSpace(current) != "" {
						pieces = append(pieces, current)
					}
					current = para + "\n\n"
				}
			}
		} else {
			current = section
		}
	}
	if strings.TrimSpace(current) != "" {
		pieces = append(pieces, current)
	}

	lookup := make(map[string]ChunkImage)
	for _, img := range images {
		if img.Exists && img.AbsPath != "" {
			lookup[img.RelPath] = img
		}
	}

	chunks := make([]Chunk, 0, len(pieces))
	for i, text := range pieces {
		var chunkImages []ChunkImage
		for _, match := range imagePattern.FindAllStringSubmatch(text, -1) {
			if img, ok := lookup[decodePath(match[2])]; ok {
				chunkImages = append(chunkImages, img)
			}
		}
		chunks = append(chunks, Chunk{Index: i, Text: text, Images: chunkImages})
	}

	return chunks
}

// splitBeforeHeadings splits content so every H1/H2 heading begins a new
// section. regexp has no lookahead, so heading offsets are located and the
// content is sliced manually.
func splitBeforeHeadings(content string) []string {
	locs := headingPattern.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return []string{content}
	}

	var sections []string
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			sections = append(sections, content[prev:loc[0]])
		}
		prev = loc[0]
	}
	sections = append(sections, content[prev:])
	return sections
}
