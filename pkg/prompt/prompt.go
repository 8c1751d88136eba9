// Package prompt renders the text sent to the generation model from the
// question, the prior turns of the conversation and the retrieved chunks.
package prompt

import (
	"strings"

	"github.com/papercomputeco/ragline/pkg/history"
	"github.com/papercomputeco/ragline/pkg/vector"
)

const (
	// Preamble opens every prompt.
	Preamble = "You are a helpful assistant."

	// NoHistory stands in for the conversation block of a new conversation.
	NoHistory = "(no prior context)"

	// ChunkDelimiter separates retrieved chunk contents in the context block.
	ChunkDelimiter = "\n\n---\n\n"
)

// Assemble builds the prompt. Blocks are always emitted in the order
// preamble, conversation, context, question, and the output depends only on
// the arguments.
func Assemble(question string, turns []history.Turn, chunks []vector.Result) string {
	var b strings.Builder

	b.WriteString(Preamble)
	b.WriteString("\n\n")

	b.WriteString("Conversation so far:\n")
	b.WriteString(renderHistory(turns))
	b.WriteString("\n")

	b.WriteString("Context from documents:\n")
	b.WriteString(renderContext(chunks))
	b.WriteString("\n\n")

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n")
	b.WriteString("Answer:")

	return b.String()
}

func renderHistory(turns []history.Turn) string {
	if len(turns) == 0 {
		return NoHistory + "\n"
	}

	var b strings.Builder
	for _, t := range turns {
		b.WriteString("User: ")
		b.WriteString(t.Question)
		b.WriteString("\nAssistant: ")
		b.WriteString(t.Answer)
		b.WriteString("\n")
	}
	return b.String()
}

func renderContext(chunks []vector.Result) string {
	contents := make([]string, 0, len(chunks))
	for _, c := range chunks {
		contents = append(contents, c.Content)
	}
	return strings.Join(contents, ChunkDelimiter)
}
