package agent

import (
	"strings"

	"github.com/hubenschmidt/go-ragdesk/retrieval"
	"github.com/hubenschmidt/go-ragdesk/vector"
)

// DefaultSystemPrompt is the concierge instruction used when none is
// configured.
const DefaultSystemPrompt = `You are the virtual assistant of the Silk Lounge website. You answer guest questions about Silk Lounge clearly and accurately, in a warm and professional tone that suits a premium hospitality brand.

Guidelines:
- Base every answer on the information retrieved from the Silk Lounge knowledge base.
- Keep answers helpful and concise, generally under 200 words unless the guest asks for more detail.
- Use short paragraphs or bullet points when they make the answer easier to read.
- If the knowledge base does not contain the answer, say honestly that you don't know and offer to connect the guest with the Silk Lounge team.
- Never invent services, prices, opening hours or policies.
- Suggest practical next steps such as reservations or contact details when relevant.`

// NoContext replaces the context block when nothing cleared the threshold.
const NoContext = "No relevant information was found in the knowledge base."

const contextDivider = "---------------------"

// BuildPrompt combines the retrieved passages and the guest's question into
// the user turn sent to the model.
func BuildPrompt(query string, results []vector.SearchResult) string {
	ctx := retrieval.FormatContext(results)
	if ctx == "" {
		ctx = NoContext
	}

	var sb strings.Builder
	sb.WriteString("Context information is below.\n")
	sb.WriteString(contextDivider + "\n")
	sb.WriteString(ctx)
	sb.WriteString("\n" + contextDivider + "\n")
	sb.WriteString("Using the context information and not prior knowledge, answer the question. ")
	sb.WriteString("If the context does not contain the answer, say that you don't know.\n")
	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(query))
	return sb.String()
}
