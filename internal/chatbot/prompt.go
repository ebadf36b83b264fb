package chatbot

import (
	"strings"

	"github.com/neuralbudget/neural-budget/internal/vectorindex"
)

// AssemblePrompt merges retrieved context and the user question into the
// fixed instruction template. The template is deliberately strict about
// using only the amounts present in the context; the model otherwise
// tends to invent totals.
func AssemblePrompt(results []vectorindex.Result, question string) string {
	var b strings.Builder

	b.WriteString("You are Neural Budget, a financial assistant.\n\n")
	b.WriteString("Context Data:\n")
	if len(results) == 0 {
		b.WriteString("(no matching transactions found)\n")
	} else {
		for _, r := range results {
			b.WriteString(r.Doc.Text)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\n")

	b.WriteString("IMPORTANT INSTRUCTIONS:\n")
	b.WriteString("- Look at ALL the context data above.\n")
	b.WriteString("- For income questions: find entries with \"Type: income\" and use the EXACT amounts shown.\n")
	b.WriteString("- For expense questions: find entries with \"Type: expense\" and use the EXACT amounts and categories shown.\n")
	b.WriteString("- Treat category names as case-insensitive when matching the question.\n")
	b.WriteString("- Always use the actual amounts from the context; never estimate.\n")
	b.WriteString("- Amounts are in Indian Rupees (₹).\n")
	b.WriteString("- If the context does not contain the answer, reply that you don't have enough information.\n")
	b.WriteString("- Keep answers concise and to the point.\n\n")
	b.WriteString("Answer based on the context:")

	return b.String()
}
