package service

import (
	"fmt"
	"strings"

	"github.com/mlopezv/docsearch-ai/internal/domain"
)

// answerInstructions is the fixed system instruction embedded in every
// generation prompt. The literal "no response" directive is the refusal
// sentinel the stream consumer watches for.
const answerInstructions = `You are an AI assistant for answering user questions.
Answer strictly based on the retrieved context below to generate a clear, structured response.

## Instructions

1. If the retrieved context contains relevant information:
   - Use it to answer the question directly.
   - Do not summarize unless asked to.
2. If the context contains multiple versions or scenarios of the answer
   (for example instructions for different tools or methods), provide a
   separate response for each version explicitly, with clear headings and
   subheadings to distinguish between them.
3. If the question cannot be answered from the context, return "no response".

## Response Format

- Use markdown-style formatting: headings, subheadings, bullet points.
- For each version or scenario, include the URL from the context when one
  is available, followed by the detailed explanation or steps.`

// BuildPrompt assembles the full generation prompt from the retrieved
// context and the verbatim user question.
func BuildPrompt(retrieved []domain.RetrievedChunk, question string) string {
	var b strings.Builder
	b.WriteString(answerInstructions)
	b.WriteString("\n\n## Retrieved Context\n")
	b.WriteString(formatContext(retrieved))
	b.WriteString("\n## User Question\n")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}

// formatContext renders each retrieved chunk with its provenance so the
// model can cite URLs and separate versions.
func formatContext(retrieved []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, rc := range retrieved {
		fmt.Fprintf(&b, "\n--- Context chunk %d ---\n", i+1)
		if rc.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", rc.Title)
		}
		if rc.SourceURL != "" {
			fmt.Fprintf(&b, "URL: %s\n", rc.SourceURL)
		}
		if rc.Version != "" {
			fmt.Fprintf(&b, "Version: %s\n", rc.Version)
		}
		if rc.Similarity != nil {
			fmt.Fprintf(&b, "Similarity: %.2f\n", *rc.Similarity)
		}
		b.WriteString(rc.Content)
		b.WriteString("\n")
	}
	return b.String()
}
