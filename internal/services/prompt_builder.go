package services

import (
	"fmt"
	"strings"

	"archivist/internal/models"
)

const contextSeparator = "\n\n---\n\n"

// BuildContext concatenates chunks into the context block supplied to the
// model. Each chunk is labeled with its 1-based position; that position is
// the number the model is instructed to cite, and citation extraction maps
// it back to the same array position.
func BuildContext(chunks []models.RetrievedChunk, documentTitles map[string]string) string {
	if len(chunks) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		title := chunk.Metadata.Title
		if t, ok := documentTitles[chunk.DocumentID]; ok && t != "" {
			title = t
		}
		if title == "" {
			title = "Untitled"
		}

		label := fmt.Sprintf("[Document %d: %s", i+1, title)
		if chunk.Metadata.Page != nil {
			label += fmt.Sprintf(" (Page %d)", *chunk.Metadata.Page)
		}
		label += "]"

		blocks = append(blocks, label+"\n"+chunk.Content)
	}

	return strings.Join(blocks, contextSeparator)
}

// BuildSystemPrompt produces the instruction template for the given answer
// source. The archive template grounds the model strictly in the supplied
// documents; the web template discloses that results came from a live web
// search instead of the curated archive.
func BuildSystemPrompt(source models.AnswerSource, context string) string {
	if source == models.SourceWeb {
		return `You are a helpful research assistant. The curated archive did not contain relevant information for this question, so the context below comes from a live web search.

Rules:
- Begin your answer by noting that the information comes from web search results, not the archive.
- Base your answer only on the search results below. If they are insufficient, say so clearly.
- When you reference a result, cite it with its number in square brackets, for example [1] or [2]. Use only this format. Never write [Document 1] or similar.
- Answer in the same language as the question.

Search results:

` + context
	}

	return `You are a helpful research assistant answering questions about a document archive.

Rules:
- Base your answer only on the documents below. Do not use outside knowledge.
- If the documents do not contain enough information to answer, state that clearly instead of guessing.
- When you reference a document, cite it with its number in square brackets, for example [1] or [2]. Use only this format. Never write [Document 1], [Doc 1], or any other style.
- Answer in the same language as the question.

Documents:

` + context
}
