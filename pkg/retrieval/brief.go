package retrieval

import (
	"fmt"
	"strings"

	"github.com/muninhq/munin/pkg/artifact"
	"github.com/muninhq/munin/pkg/authority"
)

// Brief flattens a retrieval result into an authority-ordered text bundle
// for synthesis consumers: one section per non-empty category, decisions
// first, pending questions last.
//
// Empty results render as an empty string so callers can skip emitting a
// context block entirely.
func Brief(result Result) string {
	var b strings.Builder

	for _, category := range authority.Categories() {
		matches := result[category]
		if len(matches) == 0 {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== %s ===\n", category)
		for _, match := range matches {
			if match.Similarity > 0 {
				fmt.Fprintf(&b, "- [%s] (%.2f) %s\n", match.ID, match.Similarity, artifact.Summary(match.Data))
			} else {
				fmt.Fprintf(&b, "- [%s] %s\n", match.ID, artifact.Summary(match.Data))
			}
		}
	}

	return b.String()
}
