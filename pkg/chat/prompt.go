package chat

import (
	"fmt"
	"path"
	"strings"

	"github.com/papercomputeco/vellum/pkg/source"
	"github.com/papercomputeco/vellum/pkg/utils"
	"github.com/papercomputeco/vellum/pkg/vector"
)

// MaxContextChars bounds how much of each retrieved note goes into the
// system prompt.
const MaxContextChars = 6000

const basePrompt = `You are a helpful assistant answering questions about the user's personal notes.
Answer using the notes below when they are relevant. If they do not contain the answer, say so and answer from general knowledge.
Refer to notes by their title in [[double brackets]].`

// SystemPrompt builds the instruction turn carrying the retrieved notes.
func SystemPrompt(docs []vector.SearchResult) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if len(docs) == 0 {
		b.WriteString("\n\nNo notes matched this question.")
		return b.String()
	}

	b.WriteString("\n\n# Notes\n")
	for _, doc := range docs {
		fmt.Fprintf(&b, "\n## %s\n(path: %s)\n\n%s\n",
			source.DisplayName(doc.Path),
			doc.Path,
			utils.Truncate(doc.Text, MaxContextChars),
		)
	}
	return b.String()
}

// Sources renders the reference list appended to every answer, one entry per
// retrieved note. Notes sharing a display name are listed by their path
// instead. It is empty when no notes were retrieved.
func Sources(docs []vector.SearchResult) string {
	if len(docs) == 0 {
		return ""
	}

	paths := make(map[string]bool, len(docs))
	names := make(map[string]int, len(docs))
	for _, doc := range docs {
		if !paths[doc.Path] {
			paths[doc.Path] = true
			names[source.DisplayName(doc.Path)]++
		}
	}

	var b strings.Builder
	b.WriteString("\n\n**Sources:**")
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if seen[doc.Path] {
			continue
		}
		seen[doc.Path] = true

		name := source.DisplayName(doc.Path)
		if names[name] > 1 {
			name = strings.TrimSuffix(doc.Path, path.Ext(doc.Path))
		}
		fmt.Fprintf(&b, "\n- [[%s]]", name)
	}
	return b.String()
}
