package synthesis

import (
	"fmt"
	"strings"

	"github.com/siherrmann/grounder/model"
)

const instructions = `Answer the question using only the numbered evidence below.
Cite the evidence numbers you rely on in square brackets, for example [1] or [2, 3].
If the evidence is not sufficient to answer the question, say so.`

const strictInstructions = `Do not speculate and do not add knowledge that is not in the evidence.
Every sentence of the answer must be supported by at least one cited evidence item.
Reuse the wording of the evidence where possible.`

// BuildPrompt renders the instruction block, the numbered evidence and the query.
// Evidence numbers are 1-based positions in the fused context and stay stable
// between the first attempt and the retry.
func BuildPrompt(fused *model.FusedContext, query string, strict bool) string {
	var b strings.Builder
	b.WriteString(instructions)
	if strict {
		b.WriteString("\n")
		b.WriteString(strictInstructions)
	}

	b.WriteString("\n\nEvidence:\n")
	for i, u := range fused.Units {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, u.Label, strings.TrimSpace(u.Text()))
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(strings.TrimSpace(query))
	b.WriteString("\nAnswer:")
	return b.String()
}
